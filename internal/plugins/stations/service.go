package stations

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	// Decoders for uploaded artwork.
	_ "image/jpeg"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/keyxmakerx/radio/internal/apperror"
	"github.com/keyxmakerx/radio/internal/contrast"
	"github.com/keyxmakerx/radio/internal/sanitize"
)

var (
	idPattern      = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
	artworkPattern = regexp.MustCompile(`^[0-9a-f-]{36}\.png$`)
)

const (
	// Column widths of stations.name and stations.url.
	maxNameLength = 200
	maxURLLength  = 2048

	// maxArtworkPixels bounds the decoded canvas of an upload; the byte
	// limit alone does not.
	maxArtworkPixels = 4096 * 4096
)

// StationService is the business logic contract for stations.
type StationService interface {
	List(ctx context.Context) ([]Station, error)
	Get(ctx context.Context, id string) (*Station, error)
	Create(ctx context.Context, req StationRequest) (*Station, error)
	Update(ctx context.Context, id string, req StationRequest) (*Station, error)
	Delete(ctx context.Context, id string) error
	UploadArtwork(ctx context.Context, input ArtworkInput) (*Station, error)
	ArtworkPath(name string) (string, error)
}

type stationService struct {
	repo      StationRepository
	mediaPath string
	maxSize   int64
	thumbSize int
}

// NewStationService creates the station service. Artwork is stored in
// mediaPath as thumbSize px PNG thumbnails.
func NewStationService(repo StationRepository, mediaPath string, maxSize int64, thumbSize int) StationService {
	return &stationService{
		repo:      repo,
		mediaPath: mediaPath,
		maxSize:   maxSize,
		thumbSize: thumbSize,
	}
}

// List returns all stations in display order.
func (s *stationService) List(ctx context.Context) ([]Station, error) {
	stations, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return stations, nil
}

// Get returns one station.
func (s *stationService) Get(ctx context.Context, id string) (*Station, error) {
	station, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr(err)
	}
	return station, nil
}

// Create validates and stores a new station.
func (s *stationService) Create(ctx context.Context, req StationRequest) (*Station, error) {
	req.ID = strings.TrimSpace(req.ID)
	if !idPattern.MatchString(req.ID) {
		return nil, apperror.NewValidation("id must be 1-64 lower case letters, digits, '-' or '_'")
	}

	station := &Station{ID: req.ID, CreatedAt: time.Now().UTC()}
	if err := applyRequest(station, req); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, station); err != nil {
		return nil, wrapRepoErr(err)
	}
	slog.Info("station created", slog.String("station", station.ID), slog.String("url", station.URL))
	return station, nil
}

// Update replaces the editable fields of a station.
func (s *stationService) Update(ctx context.Context, id string, req StationRequest) (*Station, error) {
	station, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr(err)
	}
	if err := applyRequest(station, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, station); err != nil {
		return nil, wrapRepoErr(err)
	}
	slog.Info("station updated", slog.String("station", station.ID))
	return station, nil
}

// Delete removes a station and its artwork.
func (s *stationService) Delete(ctx context.Context, id string) error {
	station, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return wrapRepoErr(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return wrapRepoErr(err)
	}
	s.removeArtwork(station.Artwork)
	slog.Info("station deleted", slog.String("station", id))
	return nil
}

// applyRequest validates req and copies it onto station.
func applyRequest(station *Station, req StationRequest) error {
	name := sanitize.PlainText(req.Name)
	if name == "" {
		return apperror.NewValidation("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return apperror.NewValidation(fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}

	streamURL := strings.TrimSpace(req.URL)
	if len(streamURL) > maxURLLength {
		return apperror.NewValidation(fmt.Sprintf("url must be at most %d characters", maxURLLength))
	}
	u, err := url.Parse(streamURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperror.NewValidation("url must be an http or https stream URL")
	}

	color, err := normalizeColor(req.Color)
	if err != nil {
		return err
	}

	station.Name = name
	station.Description = sanitize.Description(req.Description)
	station.URL = streamURL
	station.Color = color
	station.AutoRestart = req.AutoRestart
	station.SortOrder = req.SortOrder
	return nil
}

// normalizeColor validates a #rrggbb colour and lower-cases it. Empty means
// "not set".
func normalizeColor(color string) (string, error) {
	color = strings.TrimSpace(color)
	if color == "" {
		return "", nil
	}
	if !strings.HasPrefix(color, "#") {
		return "", apperror.NewValidation("color must look like #rrggbb")
	}
	rgb, err := contrast.Parse(color)
	if err != nil {
		return "", apperror.NewValidation("color must look like #rrggbb")
	}
	return rgb.Hex(), nil
}

// --- Artwork ---

// UploadArtwork validates an image, stores a thumbnail and, for stations
// without a colour, derives one from the artwork.
func (s *stationService) UploadArtwork(ctx context.Context, input ArtworkInput) (*Station, error) {
	if !AllowedArtworkTypes[input.MimeType] {
		return nil, apperror.NewBadRequest("unsupported file type: " + input.MimeType)
	}
	if int64(len(input.Data)) > s.maxSize {
		return nil, apperror.NewBadRequest(fmt.Sprintf("file too large; maximum size is %s",
			humanize.IBytes(uint64(s.maxSize))))
	}
	if !validateMagicBytes(input.Data, input.MimeType) {
		return nil, apperror.NewBadRequest("file content does not match declared type")
	}

	station, err := s.repo.FindByID(ctx, input.StationID)
	if err != nil {
		return nil, wrapRepoErr(err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(input.Data))
	if err != nil {
		return nil, apperror.NewBadRequest("could not decode image")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxArtworkPixels {
		return nil, apperror.NewBadRequest(fmt.Sprintf("image dimensions %dx%d exceed the %s pixel limit",
			cfg.Width, cfg.Height, humanize.Comma(maxArtworkPixels)))
	}

	src, _, err := image.Decode(bytes.NewReader(input.Data))
	if err != nil {
		return nil, apperror.NewBadRequest("could not decode image")
	}
	thumb := thumbnail(src, s.thumbSize)

	if err := os.MkdirAll(s.mediaPath, 0o755); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating media directory: %w", err))
	}
	name := uuid.NewString() + ".png"
	path := filepath.Join(s.mediaPath, name)
	if err := writePNG(path, thumb); err != nil {
		return nil, apperror.NewInternal(err)
	}

	color := station.Color
	if color == "" {
		color = averageColor(thumb).Hex()
	}

	if err := s.repo.SetArtwork(ctx, station.ID, name, color); err != nil {
		os.Remove(path)
		return nil, wrapRepoErr(err)
	}

	s.removeArtwork(station.Artwork)
	station.Artwork = name
	station.Color = color

	slog.Info("station artwork uploaded",
		slog.String("station", station.ID),
		slog.String("file", name),
		slog.String("size", humanize.Bytes(uint64(len(input.Data)))),
	)
	return station, nil
}

// ArtworkPath resolves a served artwork name to a file, refusing anything
// that is not one of our generated names.
func (s *stationService) ArtworkPath(name string) (string, error) {
	if !artworkPattern.MatchString(name) {
		return "", apperror.NewNotFound("artwork not found")
	}
	path := filepath.Join(s.mediaPath, name)
	if _, err := os.Stat(path); err != nil {
		return "", apperror.NewNotFound("artwork not found")
	}
	return path, nil
}

func (s *stationService) removeArtwork(name string) {
	if name == "" {
		return
	}
	if err := os.Remove(filepath.Join(s.mediaPath, name)); err != nil && !os.IsNotExist(err) {
		slog.Warn("removing old artwork failed", slog.String("file", name), slog.Any("error", err))
	}
}

// thumbnail scales src to fit in a size x size box, keeping the aspect
// ratio. Smaller images are kept as they are.
func thumbnail(src image.Image, size int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= size && h <= size {
		return src
	}

	newW, newH := size, size
	if w > h {
		newH = max(1, h*size/w)
	} else {
		newW = max(1, w*size/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// averageColor is the alpha-weighted mean colour of img: a pixel at half
// opacity counts half as much as an opaque one. RGBA() already returns
// alpha-premultiplied channels, so the sums divided by the summed alpha give
// straight colour. Fully transparent images get a dark grey.
func averageColor(img image.Image) contrast.RGB {
	b := img.Bounds()
	var r, g, bl, a uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			pr, pg, pb, pa := img.At(x, y).RGBA()
			r += uint64(pr)
			g += uint64(pg)
			bl += uint64(pb)
			a += uint64(pa)
		}
	}
	if a == 0 {
		return contrast.RGB{R: 0x33, G: 0x33, B: 0x33}
	}
	channel := func(sum uint64) uint8 {
		return uint8((sum*0xff + a/2) / a)
	}
	return contrast.RGB{R: channel(r), G: channel(g), B: channel(bl)}
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating artwork file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encoding artwork: %w", err)
	}
	return f.Close()
}

// validateMagicBytes checks that the file content matches the declared
// MIME type, so a spoofed Content-Type cannot smuggle other files in.
func validateMagicBytes(data []byte, declaredMIME string) bool {
	switch declaredMIME {
	case "image/jpeg":
		return len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
	case "image/png":
		return len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A})
	case "image/webp":
		return len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP"
	default:
		return false
	}
}

// wrapRepoErr passes AppErrors through and hides everything else.
func wrapRepoErr(err error) error {
	if code := apperror.SafeCode(err); code != 500 {
		return err
	}
	return apperror.NewInternal(err)
}
