// Copyright 2026 The avr169 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package segview

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"net/http"
	"strconv"
)

// A snapshotEncoder writes a glass snapshot in one wire format.
type snapshotEncoder struct {
	contentType string
	encode      func(io.Writer, image.Image) error
}

// encoders keys the response encoder by the "format" URL parameter. An
// absent or empty parameter serves PNG.
var encoders = map[string]snapshotEncoder{
	"":     {"image/png", png.Encode},
	"png":  {"image/png", png.Encode},
	"jpg":  {"image/jpeg", jpegEncode},
	"jpeg": {"image/jpeg", jpegEncode},
}

func jpegEncode(w io.Writer, img image.Image) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
}

// ServeHTTP responds to a GET with a single snapshot of the glass, PNG by
// default or JPEG when requested with "?format=jpeg". Each request renders
// the register state at that moment; poll to follow the display.
func (v *View) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET is supported", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("format")
	enc, ok := encoders[name]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown image format %q", name), http.StatusBadRequest)
		return
	}

	img, err := v.Image()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := enc.encode(&buf, img); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", enc.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("segview: sending snapshot: %v", err)
	}
}
