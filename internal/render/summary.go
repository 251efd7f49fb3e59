// Package render produces the catalog summary image.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/country-catalog/internal/model"
)

const (
	imgWidth  = 800
	imgHeight = 600
	padding   = 40
)

// Renderer writes the summary PNG into a cache directory.
type Renderer struct {
	cacheDir string
	printer  *message.Printer
}

// New creates a Renderer rooted at cacheDir. The directory is created if
// missing.
func New(cacheDir string) (*Renderer, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "render: create cache dir %s", cacheDir)
	}
	return &Renderer{
		cacheDir: cacheDir,
		printer:  message.NewPrinter(language.English),
	}, nil
}

// Path returns the location of the summary image.
func (r *Renderer) Path() string {
	return filepath.Join(r.cacheDir, "summary.png")
}

// Exists reports whether a summary image has been generated.
func (r *Renderer) Exists() bool {
	_, err := os.Stat(r.Path())
	return err == nil
}

// Generate renders the summary image: total record count, the top countries
// by estimated GDP, and the refresh timestamp. The file is replaced
// atomically so a concurrent reader never sees a partial PNG.
func (r *Renderer) Generate(totalCountries int, top []model.Country, lastRefreshed time.Time) error {
	img := image.NewRGBA(image.Rect(0, 0, imgWidth, imgHeight))

	white := color.RGBA{255, 255, 255, 255}
	lightGray := color.RGBA{211, 211, 211, 255}
	darkBlue := color.RGBA{0, 0, 139, 255}
	darkSlate := color.RGBA{47, 79, 79, 255}
	black := color.RGBA{0, 0, 0, 255}
	gray := color.RGBA{128, 128, 128, 255}

	draw.Draw(img, img.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)
	drawBorder(img, lightGray)

	title := "Country Currency Summary"
	drawText(img, darkBlue, (imgWidth-textWidth(title))/2, padding+30, title)

	drawText(img, black, padding, padding+90, fmt.Sprintf("Total Countries: %d", totalCountries))
	drawText(img, darkSlate, padding, padding+150, "Top 5 Countries by Estimated GDP:")

	y := padding + 190
	for i, c := range top {
		if i >= 5 {
			break
		}
		gdpText := "N/A"
		if c.EstimatedGDP != nil {
			gdpText = r.printer.Sprintf("$%.2f", *c.EstimatedGDP)
		}
		drawText(img, black, padding+20, y, fmt.Sprintf("%d. %s: %s", i+1, c.Name, gdpText))
		y += 35
	}

	drawText(img, gray, padding, imgHeight-padding,
		fmt.Sprintf("Last Refreshed: %s UTC", lastRefreshed.UTC().Format("2006-01-02 15:04:05")))

	tmp := r.Path() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return eris.Wrap(err, "render: create image file")
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return eris.Wrap(err, "render: encode png")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrap(err, "render: close image file")
	}
	if err := os.Rename(tmp, r.Path()); err != nil {
		return eris.Wrap(err, "render: replace image file")
	}

	zap.L().Info("summary image generated", zap.String("path", r.Path()))
	return nil
}

func drawBorder(img *image.RGBA, c color.Color) {
	u := image.NewUniform(c)
	const t = 2
	draw.Draw(img, image.Rect(10, 10, imgWidth-10, 10+t), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(10, imgHeight-10-t, imgWidth-10, imgHeight-10), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(10, 10, 10+t, imgHeight-10), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(imgWidth-10-t, 10, imgWidth-10, imgHeight-10), u, image.Point{}, draw.Src)
}

func drawText(img *image.RGBA, c color.Color, x, y int, text string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func textWidth(text string) int {
	d := font.Drawer{Face: basicfont.Face7x13}
	return d.MeasureString(text).Round()
}
