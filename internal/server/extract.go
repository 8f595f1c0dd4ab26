package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/export"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/pipeline"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/record"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	maxLangLen = 64
	maxTextLen = 200_000
)

var reLang = regexp.MustCompile(`^[a-z_]{3,}(\+[a-z_]{3,})*$`)

// extractRequest is the JSON body of POST /v1/extract/{kind}.
type extractRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
	Raw  bool   `json:"raw"`
}

// input is a parsed extraction request: either an uploaded file spooled to
// Path, or inline Text.
type input struct {
	Path     string
	Filename string
	Text     string
	Lang     string
	Raw      bool
}

func (s *Server) extract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rid := common.RequestIDFromContext(ctx)

	kind, err := constants.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, common.CodeInvalidInput, err.Error())
		return
	}

	in, err := s.readInput(w, r)
	if in.Path != "" {
		defer func() { _ = os.Remove(in.Path) }()
	}
	if err != nil {
		s.logger.Warn("server.extract.bad_request", "req_id", rid, "kind", kind, "error", err)
		writeAppError(w, err)
		return
	}

	var res pipeline.Result
	switch {
	case in.Path != "" && in.Raw:
		res, err = s.proc.RawFile(ctx, kind, in.Path, in.Lang)
	case in.Path != "":
		res, err = s.proc.ProcessFile(ctx, kind, in.Path, in.Lang)
	case in.Raw:
		res = s.proc.RawText(ctx, kind, in.Text)
	default:
		res = s.proc.ProcessText(ctx, kind, in.Text)
	}
	if err != nil {
		s.logger.Warn("server.extract.rejected", "req_id", rid, "kind", kind, "error", err)
		writeAppError(w, err)
		return
	}

	w.Header().Set("X-Text-Source", string(res.TextSource))
	if res.Strategy != "" {
		w.Header().Set("X-Recovery-Strategy", string(res.Strategy))
	}
	if res.Err != nil {
		w.Header().Set("X-Degraded-Code", common.CodeOf(res.Err))
	}

	if r.URL.Query().Get("format") == "xlsx" && res.Record != nil {
		s.writeXLSX(w, kind, res.Record, in.Filename)
		return
	}
	writeJSON(w, http.StatusOK, res.Output())
}

func (s *Server) writeXLSX(w http.ResponseWriter, kind constants.DocumentKind, rec record.Record, source string) {
	var (
		b   []byte
		err error
	)
	if order, ok := rec.(record.Order); ok {
		b, err = s.exporter.OrderXLSX(order)
	} else {
		b, err = s.exporter.RecordsXLSX(kind, []export.Row{{Source: source, Record: rec}})
	}
	if err != nil {
		s.logger.Error("server.export.failed", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "export failed")
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, kind))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// readInput accepts multipart (file and/or text fields), JSON, or a plain
// form. The returned Path, when set, must be removed by the caller.
func (s *Server) readInput(w http.ResponseWriter, r *http.Request) (input, error) {
	in := input{Lang: s.lang}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
		if err := r.ParseMultipartForm(s.maxUpload); err != nil {
			return in, common.InvalidInputErrorf("formulario inválido: %v", err)
		}
		s.formFields(r, &in)
		file, hdr, err := r.FormFile("file")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			return in, common.InvalidInputErrorf("archivo inválido: %v", err)
		default:
			defer func() { _ = file.Close() }()
			path, err := s.spool(file, hdr.Filename)
			if err != nil {
				return in, err
			}
			in.Path, in.Filename = path, hdr.Filename
		}
	case "application/json":
		var req extractRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, s.maxUpload)).Decode(&req); err != nil {
			return in, common.InvalidInputErrorf("JSON inválido: %v", err)
		}
		in.Text, in.Raw = req.Text, req.Raw
		if req.Lang != "" {
			in.Lang = req.Lang
		}
	default:
		if err := r.ParseForm(); err != nil {
			return in, common.InvalidInputErrorf("formulario inválido: %v", err)
		}
		s.formFields(r, &in)
	}

	if in.Path == "" && strings.TrimSpace(in.Text) == "" {
		return in, common.InvalidInputError("se requiere 'file' o 'text'")
	}
	v := common.NewValidator().
		Field("lang", in.Lang, common.Required, common.MaxLength(maxLangLen), common.Matches(reLang, "must be tesseract language codes joined by '+'")).
		Field("text", in.Text, common.MaxLength(maxTextLen))
	return in, common.ValidateAndReturnError(v)
}

func (s *Server) formFields(r *http.Request, in *input) {
	in.Text = r.FormValue("text")
	if lang := strings.TrimSpace(r.FormValue("lang")); lang != "" {
		in.Lang = lang
	}
	in.Raw, _ = strconv.ParseBool(r.FormValue("raw"))
}

// spool copies an upload to a temp file keeping its extension, which the
// text stage dispatches on.
func (s *Server) spool(src io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !constants.IsAllowedExt(ext) {
		return "", common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("Formato no soportado: %s", ext), common.ErrUnsupportedFormat)
	}
	f, err := os.CreateTemp(s.tempDir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("spool upload: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("spool upload: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("spool upload: %w", err)
	}
	return f.Name(), nil
}
