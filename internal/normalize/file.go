// Package normalize converts raw server and push payloads into the
// canonical records the stores hold. Every function here is pure and
// deterministic apart from client temp id generation, which is done once
// at construction and never re-assigned.
package normalize

import (
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/parleyhq/parley-go/internal/types"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}

// BytesToSize renders a byte count as a human readable decimal SI size:
// 1000-based units, 3 significant digits. Zero or negative input yields
// "0 Bytes".
func BytesToSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1000)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := float64(bytes) / math.Pow(1000, float64(i))
	return fmt.Sprintf("%s %s", strconv.FormatFloat(v, 'g', 3, 64), sizeUnits[i])
}

// ConstructFile formats a file selected for attachment with the fields
// the share pipeline expects, assigning a fresh client temp id.
func ConstructFile(name string, size int64, mimeType string) types.FileItem {
	return types.FileItem{
		ClientTempID:   uuid.NewString(),
		DisplayName:    name,
		FileSize:       size,
		FileSizePretty: BytesToSize(size),
		MimeType:       mimeType,
		ObjectType:     "file",
	}
}

// ConstructFiles formats a batch of files in order.
func ConstructFiles(files []struct {
	Name     string
	Size     int64
	MimeType string
}) []types.FileItem {
	out := make([]types.FileItem, 0, len(files))
	for _, f := range files {
		out = append(out, ConstructFile(f.Name, f.Size, f.MimeType))
	}
	return out
}

// Sanitize fills defaults on a file record that arrived from the server
// with fields missing. Applying it to ConstructFile output is a no-op.
func Sanitize(f types.FileItem) types.FileItem {
	if f.ClientTempID == "" {
		f.ClientTempID = uuid.NewString()
	}
	if f.FileSize < 0 {
		f.FileSize = 0
	}
	if f.ObjectType == "" {
		f.ObjectType = "file"
	}
	f.FileSizePretty = BytesToSize(f.FileSize)
	return f
}
