package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/socialrelay/internal/relay"
)

const (
	mediaField     = "media"
	multipartSlack = 1 << 20
	// maxFieldsBody caps JSON and urlencoded bodies, which carry no media.
	maxFieldsBody  = 1 << 20
	maxFormMemory  = 32 << 20
)

type postResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Results []string `json:"results"`
}

// badRequest is a client error that maps to a status other than 500.
type badRequest struct {
	status int
	reason string
}

func (e *badRequest) Error() string { return e.reason }

// submitPost handles POST /post: parse the form, relay it, report per-platform results.
func (s *Server) submitPost(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseSubmission(w, r)
	if err != nil {
		var br *badRequest
		if errors.As(err, &br) {
			s.writeValidation(w, br.status, br.reason)
			return
		}
		s.writeInternal(w, r, err)
		return
	}

	platforms, platformErr := relay.ParsePlatforms(form.platforms)
	sub := relay.Submission{Caption: form.caption, Platforms: platforms, Media: form.media}
	if platformErr != nil && strings.TrimSpace(sub.Caption) != "" {
		s.writeValidation(w, http.StatusBadRequest, platformErr.Error())
		return
	}

	report, err := s.relay.Submit(r.Context(), sub)
	if err != nil {
		if relay.IsValidation(err) {
			s.writeValidation(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeInternal(w, r, err)
		return
	}

	if report.SubmissionID != "" {
		w.Header().Set("X-Submission-ID", report.SubmissionID)
	}
	s.writeJSON(w, http.StatusOK, postResponse{
		Success: true,
		Message: "Posted successfully!",
		Results: report.Lines(),
	})
}

func (s *Server) writeValidation(w http.ResponseWriter, status int, reason string) {
	s.writeJSON(w, status, errorResponse{Error: reason, Message: "Validation failed"})
}

func (s *Server) writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("submission failed",
		zap.String("request_id", RequestID(r.Context())),
		zap.Error(err),
	)
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   "Internal server error",
		Message: err.Error(),
	})
}

type submissionForm struct {
	caption   string
	platforms []string
	media     *relay.Media
}

func (s *Server) parseSubmission(w http.ResponseWriter, r *http.Request) (submissionForm, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil && r.Header.Get("Content-Type") != "" {
		return submissionForm{}, &badRequest{status: http.StatusBadRequest, reason: "Invalid Content-Type header"}
	}

	switch mediaType {
	case "multipart/form-data":
		return s.parseMultipart(w, r)
	case "application/json":
		return s.parseJSON(w, r)
	default:
		r.Body = http.MaxBytesReader(w, r.Body, maxFieldsBody)
		if err := r.ParseForm(); err != nil {
			return submissionForm{}, classifyBodyError(err, maxFieldsBody)
		}
		return submissionForm{
			caption:   r.PostForm.Get("caption"),
			platforms: splitPlatforms(r.PostForm["platforms"], r.PostForm["platforms[]"]),
		}, nil
	}
}

func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) (submissionForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody+multipartSlack)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return submissionForm{}, classifyBodyError(err, s.maxBody)
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.Debug("remove multipart temp files", zap.Error(err))
		}
	}()

	values := r.MultipartForm.Value
	form := submissionForm{
		platforms: splitPlatforms(values["platforms"], values["platforms[]"]),
	}
	if captions := values["caption"]; len(captions) > 0 {
		form.caption = captions[0]
	}

	files := r.MultipartForm.File[mediaField]
	if len(files) == 0 {
		return form, nil
	}
	if len(files) > 1 {
		return submissionForm{}, &badRequest{status: http.StatusBadRequest, reason: "Only one media file may be attached"}
	}
	hdr := files[0]
	if hdr.Size > s.maxBody {
		return submissionForm{}, tooLarge(s.maxBody)
	}
	file, err := hdr.Open()
	if err != nil {
		return submissionForm{}, fmt.Errorf("open media: %w", err)
	}
	defer file.Close() //nolint:errcheck // read-only multipart file

	data, err := io.ReadAll(io.LimitReader(file, s.maxBody+1))
	if err != nil {
		return submissionForm{}, fmt.Errorf("read media: %w", err)
	}
	if int64(len(data)) > s.maxBody {
		return submissionForm{}, tooLarge(s.maxBody)
	}
	form.media = &relay.Media{
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Data:        data,
	}
	return form, nil
}

type jsonSubmission struct {
	Caption        string      `json:"caption"`
	Platforms      flexStrings `json:"platforms"`
	PlatformsArray flexStrings `json:"platforms[]"`
}

func (s *Server) parseJSON(w http.ResponseWriter, r *http.Request) (submissionForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFieldsBody)
	var body jsonSubmission
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return submissionForm{}, tooLarge(maxFieldsBody)
		}
		return submissionForm{}, &badRequest{status: http.StatusBadRequest, reason: "Invalid JSON body"}
	}
	return submissionForm{
		caption:   body.Caption,
		platforms: splitPlatforms(body.Platforms, body.PlatformsArray),
	}, nil
}

// flexStrings accepts either a JSON string or an array of strings.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*f = flexStrings{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("platforms must be a string or an array of strings: %w", err)
	}
	*f = many
	return nil
}

// splitPlatforms merges every platform field and splits comma-separated values.
func splitPlatforms(groups ...[]string) []string {
	var out []string
	for _, group := range groups {
		for _, v := range group {
			out = append(out, strings.Split(v, ",")...)
		}
	}
	return out
}

func classifyBodyError(err error, limit int64) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return tooLarge(limit)
	}
	return &badRequest{status: http.StatusBadRequest, reason: "Invalid form body"}
}

func tooLarge(limit int64) error {
	return &badRequest{
		status: http.StatusRequestEntityTooLarge,
		reason: fmt.Sprintf("File too large (max %d bytes)", limit),
	}
}
