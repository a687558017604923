package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/meetclone/backend/internal/config"
	"github.com/meetclone/backend/internal/recording"
)

func registerRecordingRoutes(api *gin.RouterGroup, cfg *config.Config, store *recording.Store, finalizer *recording.Finalizer) {
	// POST /api/upload-audio — one recorded chunk, multipart form:
	// meetingId, userId, seq, chunk.
	api.POST("/upload-audio", func(c *gin.Context) {
		meetingID := c.PostForm("meetingId")
		userID := c.PostForm("userId")
		seq, err := strconv.Atoi(c.PostForm("seq"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seq"})
			return
		}

		fh, err := c.FormFile("chunk")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing chunk"})
			return
		}
		src, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable chunk"})
			return
		}
		defer src.Close()

		path, err := store.WriteSegment(meetingID, userID, seq, src, cfg.MaxSegmentBytes())
		switch {
		case errors.Is(err, recording.ErrSegmentTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "chunk too large"})
			return
		case errors.Is(err, recording.ErrInvalidID), errors.Is(err, recording.ErrInvalidSeq):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case err != nil:
			log.Error().Err(err).Str("module", "adapters.http").Msg("segment write failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "write failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "path": path})
	})

	// POST /api/finalize — merge a participant's segments and derive
	// the transcription waveform.
	api.POST("/finalize", func(c *gin.Context) {
		meetingID := c.PostForm("meetingId")
		userID := c.PostForm("userId")

		artifacts, err := finalizer.Finalize(c.Request.Context(), meetingID, userID)
		switch {
		case errors.Is(err, recording.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "no recording found"})
			return
		case errors.Is(err, recording.ErrInvalidID):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case err != nil:
			log.Error().Err(err).Str("module", "adapters.http").Str("meeting", meetingID).Str("user", userID).Msg("finalize failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "processing failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "webm": artifacts.Container, "wav": artifacts.Waveform})
	})
}
