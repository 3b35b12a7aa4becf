package transform

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/oneconcern/podbundle/pkg/core/status"
	"github.com/oneconcern/podbundle/pkg/model"
)

// envVariable is replaced by the literal build mode
const envVariable = "process.env.NODE_ENV"

func (p *Pipeline) fileOptions(typ model.AssetType, name string) api.TransformOptions {
	production := p.mode == model.Production
	opts := api.TransformOptions{
		Sourcefile:   name,
		MinifySyntax: production,
		Charset:      api.CharsetUTF8,
	}

	switch typ {
	case model.CSS:
		opts.Loader = api.LoaderCSS
		opts.MinifyWhitespace = production
	default:
		opts.Loader = api.LoaderJS
		opts.Format = api.FormatCommonJS
		opts.Define = map[string]string{envVariable: fmt.Sprintf("%q", string(p.mode))}
	}
	return opts
}

// TransformFile transforms a single source file
func (p *Pipeline) TransformFile(typ model.AssetType, file model.SourceFile) (string, error) {
	name := file.File
	if name == "" {
		name = file.ID
	}
	result := api.Transform(file.Source, p.fileOptions(typ, name))
	if len(result.Errors) > 0 {
		return "", transformError(name, result.Errors)
	}
	return string(result.Code), nil
}

// minify compacts a whole JavaScript bundle
func minify(code string) (string, error) {
	result := api.Transform(code, api.TransformOptions{
		Loader:            api.LoaderJS,
		Sourcefile:        "bundle.js",
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		Charset:           api.CharsetUTF8,
	})
	if len(result.Errors) > 0 {
		return "", transformError("bundle.js", result.Errors)
	}
	return string(result.Code), nil
}

func transformError(name string, messages []api.Message) error {
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg.Location != nil {
			parts = append(parts, fmt.Sprintf("%d:%d: %s", msg.Location.Line, msg.Location.Column, msg.Text))
			continue
		}
		parts = append(parts, msg.Text)
	}
	return status.ErrTransform.WrapMessage("%s: %s", name, strings.Join(parts, "; "))
}
