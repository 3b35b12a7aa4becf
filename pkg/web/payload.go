package web

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/oneconcern/podbundle/pkg/core/status"
	"github.com/oneconcern/podbundle/pkg/errors"
	"github.com/oneconcern/podbundle/pkg/model"
)

// feedPayload is a feed upload, as sent by podlet clients
type feedPayload struct {
	Tag   string             `json:"tag"`
	Type  string             `json:"type"`
	Files []model.SourceFile `json:"files"`
}

type bundlePayload struct {
	Type  string   `json:"type"`
	Feeds []string `json:"feeds"`
}

type instructionPayload struct {
	Layout string   `json:"layout"`
	Type   string   `json:"type"`
	Tags   []string `json:"tags"`
}

// decodeJSON decodes a request body, mapping syntax errors to validation errors
func decodeJSON(r *http.Request, target interface{}) error {
	if err := model.JSON.NewDecoder(r.Body).Decode(target); err != nil {
		if isTooLarge(err) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return status.ErrValidation.WrapMessage("empty request body")
		}
		return status.ErrValidation.WrapMessage("invalid JSON payload: %v", err)
	}
	return nil
}

// readFeed parses a feed upload: either a multipart form with tag, type and files parts,
// or a JSON body holding a feed object or a bare array of source files.
func (s *Server) readFeed(r *http.Request) (feedPayload, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, s.params.MaxUploadSize)
	var payload feedPayload

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := s.readMultipartFeed(r, &payload); err != nil {
			return payload, err
		}
		return payload, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return payload, err
	}
	trimmed := strings.TrimSpace(string(body))
	switch {
	case trimmed == "":
		return payload, status.ErrValidation.WrapMessage("empty feed")
	case strings.HasPrefix(trimmed, "["):
		if err := model.JSON.UnmarshalFromString(trimmed, &payload.Files); err != nil {
			return payload, status.ErrValidation.WrapMessage("invalid feed: %v", err)
		}
	default:
		if err := model.JSON.UnmarshalFromString(trimmed, &payload); err != nil {
			return payload, status.ErrValidation.WrapMessage("invalid feed: %v", err)
		}
	}
	return payload, nil
}

func (s *Server) readMultipartFeed(r *http.Request, payload *feedPayload) error {
	reader, err := r.MultipartReader()
	if err != nil {
		return status.ErrValidation.WrapMessage("invalid multipart feed: %v", err)
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if isTooLarge(err) {
				return err
			}
			return status.ErrValidation.WrapMessage("invalid multipart feed: %v", err)
		}
		if err := readPart(part, payload); err != nil {
			return err
		}
	}
}

func readPart(part *multipart.Part, payload *feedPayload) error {
	defer func() { _ = part.Close() }()

	data, err := io.ReadAll(part)
	if err != nil {
		return err
	}
	switch part.FormName() {
	case "tag":
		payload.Tag = strings.TrimSpace(string(data))
	case "type":
		payload.Type = strings.TrimSpace(string(data))
	case "files", "file":
		name := part.FileName()
		if strings.EqualFold(path.Ext(name), ".json") {
			var files []model.SourceFile
			if err := model.JSON.Unmarshal(data, &files); err != nil {
				return status.ErrValidation.WrapMessage("invalid feed file %s: %v", name, err)
			}
			payload.Files = append(payload.Files, files...)
			return nil
		}
		// a plain source file is an entry module without dependencies
		payload.Files = append(payload.Files, model.SourceFile{
			File:   name,
			Source: string(data),
			Entry:  true,
		})
	}
	return nil
}

func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

// assetType resolves the asset type from the route, falling back to the payload
func assetType(fromPath, fromPayload string) (model.AssetType, error) {
	if fromPath != "" {
		if fromPayload != "" && fromPayload != fromPath {
			return "", status.ErrValidation.WrapMessage("conflicting asset types %q and %q", fromPath, fromPayload)
		}
		return model.ParseAssetType(fromPath)
	}
	return model.ParseAssetType(fromPayload)
}
