package handler

import (
	"image"
	"net/http"

	"github.com/disintegration/imaging"

	"visiondash/internal/logger"
	"visiondash/internal/service/session"
)

// ImageHandler serves GET /image/{kind} as PNG: the pending upload
// ("preview") or the original/annotated bitmap of the last result.
func ImageHandler(sessions *session.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, ok := existingSessionID(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		st := sessions.Get(sid)

		var img image.Image
		switch r.PathValue("kind") {
		case "preview":
			if st.Upload != nil {
				img = st.Upload.Bitmap
			}
		case "original":
			if st.Result != nil {
				img = st.Result.Original
			}
		case "annotated":
			if st.Result != nil {
				img = st.Result.Annotated
			}
		}
		if img == nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		if err := imaging.Encode(w, img, imaging.PNG); err != nil {
			logger.Error("Error encoding image: %v", err)
		}
	}
}
