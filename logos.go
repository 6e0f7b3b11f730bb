package insite

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/eringen/insite/analytics"
	"github.com/eringen/insite/views"
)

const (
	logoSize      = 128
	maxUploadSize = 2 << 20 // 2MB
	logosSubdir   = "logos"
)

// processLogo decodes an image and scales it onto a logoSize square,
// preserving aspect ratio and centring it on a transparent canvas.
func processLogo(src io.Reader) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, errors.New("decode image: empty image")
	}

	tw, th := logoSize, logoSize
	if w > h {
		th = h * logoSize / w
	} else if h > w {
		tw = w * logoSize / h
	}
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	x0, y0 := (logoSize-tw)/2, (logoSize-th)/2

	dst := image.NewRGBA(image.Rect(0, 0, logoSize, logoSize))
	draw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+tw, y0+th), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// handleLogoUpload stores a resized logo for an application.
func (a *App) handleLogoUpload(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.String(http.StatusBadRequest, "Invalid application id")
	}
	ctx := c.Request().Context()
	if _, err := a.Analytics.GetApplication(ctx, id); err != nil {
		if errors.Is(err, analytics.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return err
	}

	file, err := c.FormFile("logo")
	if err != nil {
		return c.String(http.StatusBadRequest, "No logo file provided")
	}
	if file.Size > maxUploadSize {
		return c.String(http.StatusBadRequest, "File too large (max 2MB)")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	data, err := processLogo(src)
	if err != nil {
		return c.String(http.StatusBadRequest, "Invalid image: "+err.Error())
	}

	dir := filepath.Join(a.staticDir, logosSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create logos dir: %w", err)
	}
	name := "app-" + strconv.FormatInt(id, 10) + ".png"
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write logo: %w", err)
	}
	if err := a.Analytics.SetApplicationLogo(ctx, id, "/public/"+logosSubdir+"/"+name); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/?app="+strconv.FormatInt(id, 10))
}

// logoLookup maps application ids to their uploaded logos.
func logoLookup(apps []analytics.Application) views.LogoLookup {
	l := make(views.LogoLookup, len(apps))
	for _, app := range apps {
		if app.Logo != "" {
			l[strconv.FormatInt(app.ID, 10)] = app.Logo
		}
	}
	return l
}
