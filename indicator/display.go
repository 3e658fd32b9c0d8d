//go:build screen

package indicator

import (
	"encoding/binary"
	"fmt"
	"image"
	"log"
	"os"
	"syscall"

	"github.com/d21d3q/framebuffer"
	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/basicfont"
)

const fontPath = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"

// Display implements Indicator on a 16 bpp framebuffer, showing what the
// speaker is doing.
type Display struct {
	fb              *framebuffer.FrameBuffer
	dc              *gg.Context
	canvas          *image.RGBA
	pixBuffer       []byte
	backBuffer      []byte
	width           int
	height          int
	lineLengthBytes int
	initialized     bool
}

// NewDisplay opens the framebuffer device (default /dev/fb0).
func NewDisplay(device string) (*Display, error) {
	if device == "" {
		device = defaultFramebuffer
	}

	fb, err := framebuffer.OpenFrameBuffer(device, os.O_RDWR)
	if err != nil {
		return nil, fmt.Errorf("open framebuffer: %w", err)
	}
	varInfo, err := fb.VarScreenInfo()
	if err != nil {
		fb.File().Close()
		return nil, fmt.Errorf("get variable screen info: %w", err)
	}
	fixedInfo, err := fb.FixScreenInfo()
	if err != nil {
		fb.File().Close()
		return nil, fmt.Errorf("get fixed screen info: %w", err)
	}

	d := &Display{
		fb:              fb,
		width:           int(varInfo.XRes),
		height:          int(varInfo.YRes),
		lineLengthBytes: int(fixedInfo.LineLength),
	}
	d.pixBuffer, err = fb.Pixels()
	if err != nil {
		fb.File().Close()
		return nil, fmt.Errorf("get pixel data: %w", err)
	}
	d.backBuffer = make([]byte, d.height*d.lineLengthBytes)
	d.canvas = image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	d.dc = gg.NewContextForRGBA(d.canvas)
	d.initialized = true

	log.Printf("Display: framebuffer %s %dx%d, %d bpp", device, d.width, d.height, varInfo.BitsPerPixel)
	d.clear()
	return d, nil
}

func (d *Display) clear() {
	for i := range d.pixBuffer {
		d.pixBuffer[i] = 0
	}
}

func (d *Display) setFontSize(size float64) {
	if err := d.dc.LoadFontFace(fontPath, size); err != nil {
		d.dc.SetFontFace(basicfont.Face7x13)
	}
}

// screen paints a full-screen message: a headline and an optional detail.
func (d *Display) screen(bg [3]float64, headline, detail string) {
	if !d.initialized {
		return
	}
	d.dc.SetRGB(bg[0], bg[1], bg[2])
	d.dc.DrawRectangle(0, 0, float64(d.width), float64(d.height))
	d.dc.Fill()

	y := float64(d.height / 2)
	if detail != "" {
		y -= 30
	}
	d.dc.SetRGB(1, 1, 1)
	d.setFontSize(56)
	d.dc.DrawStringAnchored(headline, float64(d.width/2), y, 0.5, 0.5)
	if detail != "" {
		d.setFontSize(36)
		d.dc.DrawStringAnchored(fitText(detail, maxTitleRunes), float64(d.width/2), y+70, 0.5, 0.5)
	}
	d.flush()
}

func (d *Display) flush() {
	frame := image.NewRGBA(d.canvas.Bounds())
	draw.Copy(frame, image.Point{}, d.canvas, d.canvas.Bounds(), draw.Src, nil)

	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			r, g, b, _ := frame.At(x, y).RGBA()
			idx := y*d.lineLengthBytes + x*2
			if idx+1 < len(d.backBuffer) {
				binary.LittleEndian.PutUint16(d.backBuffer[idx:], rgb565(r, g, b))
			}
		}
	}
	copy(d.pixBuffer, d.backBuffer)
}

// Idle implements Indicator.Idle.
func (d *Display) Idle() {
	d.screen([3]float64{0, 0, 0.3}, "Ready", "Place a card")
}

// Playing implements Indicator.Playing.
func (d *Display) Playing(title string) {
	d.screen([3]float64{0, 0.5, 0}, "Now playing", title)
}

// Stopped implements Indicator.Stopped.
func (d *Display) Stopped() {
	d.screen([3]float64{0.3, 0.3, 0.3}, "Stopped", "")
}

// Unknown implements Indicator.Unknown.
func (d *Display) Unknown(text string) {
	d.screen([3]float64{0.7, 0, 0}, "Unknown card", text)
}

// Shutdown implements Indicator.Shutdown.
func (d *Display) Shutdown() {
	if !d.initialized {
		return
	}
	d.clear()
}

// Release implements Indicator.Release.
func (d *Display) Release() error {
	if d.fb == nil {
		return nil
	}
	d.clear()
	d.initialized = false
	if d.pixBuffer != nil {
		syscall.Munmap(d.pixBuffer)
		d.pixBuffer = nil
	}
	err := d.fb.File().Close()
	d.fb = nil
	return err
}
