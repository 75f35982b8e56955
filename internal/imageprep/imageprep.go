// Package imageprep turns a downloaded radar printout into something every
// vision provider accepts: JPEG or PNG, no larger than a maximum dimension.
package imageprep

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Options controls re-encoding.
type Options struct {
	MaxDim      int // Longest side after downscaling (default: 2048)
	JPEGQuality int // Output quality (default: 90)
}

// DefaultOptions keeps printouts legible while staying under provider image limits.
func DefaultOptions() Options {
	return Options{MaxDim: 2048, JPEGQuality: 90}
}

// Prepared is the image to attach to the LLM request.
type Prepared struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
	// Reencoded is true when Data differs from the downloaded bytes.
	Reencoded bool
}

// convert is swapped in tests.
var convert = convertToJPEG

// Prepare sniffs the image and re-encodes it when the format is not one the
// providers accept natively or when it exceeds opts.MaxDim. Bytes that cannot
// be decoded, even after external conversion, are returned untouched with
// fallbackMIME so the model still gets a chance to read them.
func Prepare(data []byte, fallbackMIME string, opts Options) Prepared {
	if opts.MaxDim <= 0 {
		opts.MaxDim = DefaultOptions().MaxDim
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = DefaultOptions().JPEGQuality
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		converted, convErr := convert(data)
		if convErr != nil {
			log.Printf("WARNING: imageprep: undecodable %s image, sending as-is: %v (conversion: %v)",
				sniff(data, fallbackMIME), err, convErr)
			return Prepared{Data: data, MIMEType: sniff(data, fallbackMIME)}
		}
		log.Printf("imageprep: converted non-native image format to JPEG (%d → %d bytes)", len(data), len(converted))
		p, prepErr := reencode(converted, opts)
		if prepErr != nil {
			log.Printf("WARNING: imageprep: converted image unreadable: %v", prepErr)
			return Prepared{Data: data, MIMEType: sniff(data, fallbackMIME)}
		}
		return p
	}

	native := format == "jpeg" || format == "png"
	if native && longestSide(cfg.Width, cfg.Height) <= opts.MaxDim {
		return Prepared{Data: data, MIMEType: "image/" + format, Width: cfg.Width, Height: cfg.Height}
	}

	p, err := reencode(data, opts)
	if err != nil {
		log.Printf("WARNING: imageprep: re-encode %s failed, sending as-is: %v", format, err)
		return Prepared{Data: data, MIMEType: sniff(data, fallbackMIME), Width: cfg.Width, Height: cfg.Height}
	}
	return p
}

func reencode(data []byte, opts Options) (Prepared, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Prepared{}, fmt.Errorf("decode image: %w", err)
	}

	w, h := ScaledSize(img.Bounds().Dx(), img.Bounds().Dy(), opts.MaxDim)
	out, err := encodeJPEG(img, w, h, opts.JPEGQuality)
	if err != nil {
		return Prepared{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return Prepared{Data: out, MIMEType: "image/jpeg", Width: w, Height: h, Reencoded: true}, nil
}

// ScaledSize fits width x height inside a maxDim square, keeping the aspect
// ratio. Images already inside are returned unchanged.
func ScaledSize(width, height, maxDim int) (int, int) {
	longest := longestSide(width, height)
	if maxDim <= 0 || longest <= maxDim {
		return width, height
	}
	w := width * maxDim / longest
	h := height * maxDim / longest
	return max(w, 1), max(h, 1)
}

func longestSide(width, height int) int {
	return max(width, height)
}

// encodeJPEG flattens transparency onto white and scales to w x h.
func encodeJPEG(img image.Image, w, h, quality int) ([]byte, error) {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	if w == img.Bounds().Dx() && h == img.Bounds().Dy() {
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sniff(data []byte, fallback string) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	if fallback != "" {
		return fallback
	}
	return "image/jpeg"
}

// convertToJPEG converts HEIC and other formats Go cannot decode using
// external tools. Tries magick (ImageMagick 7) first, then convert
// (ImageMagick 6).
func convertToJPEG(data []byte) ([]byte, error) {
	for _, name := range []string{"magick", "convert"} {
		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		result, err := runConverter(path, data)
		if err != nil {
			log.Printf("imageprep: %s conversion failed: %v", name, err)
			continue
		}
		return result, nil
	}
	return nil, fmt.Errorf("no image converter available (tried magick, convert)")
}

func runConverter(bin string, data []byte) ([]byte, error) {
	inFile, err := os.CreateTemp("", "radar-in-*")
	if err != nil {
		return nil, fmt.Errorf("create temp input: %w", err)
	}
	defer os.Remove(inFile.Name())

	if _, err := inFile.Write(data); err != nil {
		inFile.Close()
		return nil, fmt.Errorf("write temp input: %w", err)
	}
	inFile.Close()

	outPath := inFile.Name() + ".jpg"
	defer os.Remove(outPath)

	cmd := exec.Command(bin, inFile.Name(), outPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s: %w (%s)", bin, err, string(output))
	}

	outFile, err := os.Open(outPath)
	if err != nil {
		return nil, fmt.Errorf("open converted output: %w", err)
	}
	defer outFile.Close()

	return io.ReadAll(outFile)
}
