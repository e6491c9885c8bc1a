package handlers

import (
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/editlogbot/internal/archive"
	"github.com/edgard/editlogbot/internal/database"
)

// detectMedia returns the attachment to archive, if any. Photos come in
// several sizes; the largest resolution is used.
func detectMedia(msg *models.Message) (archive.MediaRef, bool) {
	switch {
	case len(msg.Photo) > 0:
		return archive.MediaRef{FileID: largestPhoto(msg.Photo).FileID, Kind: database.MediaPhoto, MimeType: "image/jpeg"}, true
	case msg.Video != nil:
		return archive.MediaRef{FileID: msg.Video.FileID, Kind: database.MediaVideo, FileName: msg.Video.FileName, MimeType: msg.Video.MimeType}, true
	case msg.VideoNote != nil:
		return archive.MediaRef{FileID: msg.VideoNote.FileID, Kind: database.MediaVideoNote, MimeType: "video/mp4"}, true
	case msg.Voice != nil:
		return archive.MediaRef{FileID: msg.Voice.FileID, Kind: database.MediaVoice, MimeType: msg.Voice.MimeType}, true
	case msg.Document != nil:
		return archive.MediaRef{FileID: msg.Document.FileID, Kind: database.MediaDocument, FileName: msg.Document.FileName, MimeType: msg.Document.MimeType}, true
	default:
		return archive.MediaRef{}, false
	}
}

// largestPhoto picks the size with the most pixels, then the biggest file.
func largestPhoto(sizes []models.PhotoSize) models.PhotoSize {
	best := sizes[0]
	for _, p := range sizes[1:] {
		area, bestArea := p.Width*p.Height, best.Width*best.Height
		if area > bestArea || (area == bestArea && p.FileSize > best.FileSize) {
			best = p
		}
	}
	return best
}

func textOrCaption(msg *models.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

func displayName(u *models.User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
