package bot

import (
	"bytes"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"go.uber.org/zap"

	"zavit/epub"
)

// Telegram photo uploads are limited to 10000 px total; a 800 px wide
// cover is plenty for a chat preview.
const coverWidth = 800

// prepareCover extracts the book cover and reencodes it as a chat-sized
// JPEG. Returns nil when there is no usable cover.
func prepareCover(book *epub.Book, log *zap.Logger) []byte {
	raw, ok := book.Cover()
	if !ok {
		return nil
	}

	if t, err := filetype.Match(raw); err != nil || (t != matchers.TypeJpeg && t != matchers.TypePng) {
		log.Warn("Cover has unsupported image type, skipping")
		return nil
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		log.Warn("Unable to decode cover image", zap.Error(err))
		return nil
	}

	if img.Bounds().Dx() > coverWidth {
		img = imaging.Resize(img, coverWidth, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		log.Warn("Unable to encode cover image", zap.Error(err))
		return nil
	}
	return buf.Bytes()
}
