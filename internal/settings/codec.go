package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ulikunitz/xz"
	"gopkg.in/yaml.v3"
)

// Format is a settings export encoding.
type Format string

// Supported export formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnsupportedFormat is returned for file extensions with no codec.
var ErrUnsupportedFormat = errors.New("unsupported settings format")

const xzSuffix = ".xz"

// FormatFromPath infers the format from a file name such as settings.yaml or settings.toml.xz.
func FormatFromPath(path string) (Format, bool, error) {
	name := strings.ToLower(filepath.Base(path))
	compressed := strings.HasSuffix(name, xzSuffix)
	name = strings.TrimSuffix(name, xzSuffix)

	switch filepath.Ext(name) {
	case ".json":
		return FormatJSON, compressed, nil
	case ".yaml", ".yml":
		return FormatYAML, compressed, nil
	case ".toml":
		return FormatTOML, compressed, nil
	default:
		return "", false, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Encode writes s to w in the given format.
func Encode(w io.Writer, s Settings, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(s)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Decode reads settings from r. Fields absent from the input keep their default values.
func Decode(r io.Reader, format Format) (Settings, error) {
	out := Defaults()
	var err error
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&out)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&out)
	case FormatTOML:
		err = toml.NewDecoder(r).Decode(&out)
	default:
		return Settings{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return Settings{}, fmt.Errorf("decode %s settings: %w", format, err)
	}
	return out.Normalize(), nil
}

// ExportFile writes s to path, choosing the format from its extension.
func ExportFile(path string, s Settings) error {
	format, compressed, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if compressed {
		zw, err := xz.NewWriter(&buf)
		if err != nil {
			return fmt.Errorf("create xz writer: %w", err)
		}
		if err := Encode(zw, s, format); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("close xz writer: %w", err)
		}
	} else if err := Encode(&buf, s, format); err != nil {
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ImportFile reads settings from path, choosing the format from its extension.
func ImportFile(path string) (Settings, error) {
	format, compressed, err := FormatFromPath(path)
	if err != nil {
		return Settings{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Settings{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		zr, err := xz.NewReader(f)
		if err != nil {
			return Settings{}, fmt.Errorf("read xz stream: %w", err)
		}
		r = zr
	}
	return Decode(r, format)
}
