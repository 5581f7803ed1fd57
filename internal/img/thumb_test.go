package img

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEncodeFitsWithinBox(t *testing.T) {
	tmp := t.TempDir()
	src, _, err := Decode(createTestImage(t, 400, 200))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	dstPath := filepath.Join(tmp, "nested", "thumb.jpg")
	w, h, err := Encode(src, dstPath, 100, 90)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	if w != 100 || h != 50 {
		t.Fatalf("unexpected thumbnail size: got %dx%d, want 100x50", w, h)
	}

	data, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatalf("thumbnail file not created: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode written thumbnail: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg output, got %s", format)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Fatalf("unexpected encoded size: %dx%d", cfg.Width, cfg.Height)
	}
}

func TestEncodeDoesNotUpscale(t *testing.T) {
	tmp := t.TempDir()
	src, _, err := Decode(createTestImage(t, 80, 30))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	w, h, err := Encode(src, filepath.Join(tmp, "small.jpg"), 960, 96)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if w != 80 || h != 30 {
		t.Fatalf("source was resized: got %dx%d, want 80x30", w, h)
	}
}

func TestEncodeLeavesNoStagingFiles(t *testing.T) {
	tmp := t.TempDir()
	src, _, err := Decode(createTestImage(t, 40, 40))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	if _, _, err := Encode(src, filepath.Join(tmp, "out.jpg"), 20, 80); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.jpg" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("unexpected directory contents: %v", names)
	}
}

func TestEncodeFailsWhenParentIsAFile(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "large")
	if err := os.WriteFile(blocker, []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	src, _, err := Decode(createTestImage(t, 10, 10))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	_, _, err = Encode(src, filepath.Join(blocker, "x.jpg"), 10, 90)
	if err == nil {
		t.Fatal("expected error when parent directory cannot be created")
	}
	if !strings.Contains(err.Error(), "mkdir") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestDecodeReportsFormatAndSize(t *testing.T) {
	_, info, err := Decode(createTestImage(t, 64, 48))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if info.Format != "png" || info.Width != 64 || info.Height != 48 {
		t.Fatalf("unexpected info: %+v", info)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 5, 7)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	_, info, err = Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if info.Format != "jpeg" || info.Width != 5 || info.Height != 7 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestDecodeRejectsNonImage(t *testing.T) {
	if _, _, err := Decode([]byte("definitely not an image")); err == nil {
		t.Fatal("expected error for undecodable input")
	}
}

func TestDecodeRejectsOversizedHeaderBeforeDecoding(t *testing.T) {
	// Only a header: a full decode would fail on the missing IDAT, so the
	// limit must trip first.
	_, _, err := Decode(pngHeader(100_000, 100_000))
	if !errors.Is(err, ErrTooManyPixels) {
		t.Fatalf("expected ErrTooManyPixels, got %v", err)
	}
}

func TestDecodeLimited(t *testing.T) {
	data := createTestImage(t, 20, 20)

	if _, _, err := DecodeLimited(data, 399); !errors.Is(err, ErrTooManyPixels) {
		t.Fatalf("expected ErrTooManyPixels at 399, got %v", err)
	}
	if _, info, err := DecodeLimited(data, 400); err != nil || info.Width != 20 {
		t.Fatalf("400 pixels should be accepted: %+v, %v", info, err)
	}
	if _, _, err := DecodeLimited(data, 0); err != nil {
		t.Fatalf("zero limit disables the check: %v", err)
	}
}

func TestWriteNewRefusesToOverwrite(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "orig.png")

	if err := WriteNew(path, []byte("first")); err != nil {
		t.Fatalf("first WriteNew returned error: %v", err)
	}
	err := WriteNew(path, []byte("second"))
	if !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != "first" {
		t.Fatalf("file was overwritten: %q", data)
	}
}

func createTestImage(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// pngHeader returns a PNG signature and IHDR chunk declaring w x h RGB pixels.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	chunk := make([]byte, 0, 17)
	chunk = append(chunk, "IHDR"...)
	chunk = binary.BigEndian.AppendUint32(chunk, w)
	chunk = binary.BigEndian.AppendUint32(chunk, h)
	chunk = append(chunk, 8, 2, 0, 0, 0)

	_ = binary.Write(&buf, binary.BigEndian, uint32(len(chunk)-4))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}
