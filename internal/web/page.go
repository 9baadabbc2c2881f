package web

import (
	"fmt"

	"github.com/JonMunkholm/sheetload/internal/schema"
)

// PageData is rendered into the upload page.
type PageData struct {
	ColumnTypes    []schema.Entry
	MaxFileSize    int64
	RequireAPIKey  bool
	SessionMinutes int
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.0f %cB", float64(n)/float64(div), "KMGT"[exp])
}
