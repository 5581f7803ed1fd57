// Package exifmeta pulls camera metadata out of uploaded originals.
package exifmeta

import (
	"bytes"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// Info is the subset of EXIF data reported alongside an ingested original.
type Info struct {
	CameraMake  string            `json:"cameraMake,omitempty"`
	CameraModel string            `json:"cameraModel,omitempty"`
	TakenAt     *time.Time        `json:"takenAt,omitempty"`
	Latitude    *float64          `json:"latitude,omitempty"`
	Longitude   *float64          `json:"longitude,omitempty"`
	Orientation int               `json:"orientation,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

var reportedFields = []exif.FieldName{
	exif.Make, exif.Model, exif.Software, exif.Artist, exif.Copyright,
	exif.ExposureTime, exif.FNumber, exif.ISOSpeedRatings, exif.FocalLength,
	exif.DateTimeOriginal,
}

// Extract decodes EXIF from image bytes. An error means the bytes carry no
// readable EXIF block, which is normal for PNG, GIF and stripped JPEGs.
func Extract(data []byte) (*Info, error) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return nil, err
	}

	info := &Info{Fields: make(map[string]string)}
	for _, name := range reportedFields {
		if tag, err := x.Get(name); err == nil {
			info.Fields[string(name)] = strings.Trim(tag.String(), `"`)
		}
	}

	info.CameraMake = stringField(x, exif.Make)
	info.CameraModel = stringField(x, exif.Model)

	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil {
			info.Orientation = v
		}
	}
	if dt, err := x.DateTime(); err == nil {
		info.TakenAt = &dt
	}
	if lat, long, err := x.LatLong(); err == nil {
		info.Latitude = &lat
		info.Longitude = &long
	}

	if len(info.Fields) == 0 {
		info.Fields = nil
	}
	return info, nil
}

func stringField(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
