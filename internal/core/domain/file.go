package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// FileMeta is the per-document metadata record kept next to the upload.
// It lets listings be repaired without re-parsing the PDF.
type FileMeta struct {
	ID               string  `json:"id"`
	OriginalFilename string  `json:"original_filename"`
	UploadTime       float64 `json:"upload_time"`
	PageCount        int     `json:"page_count"`
	SizeBytes        int64   `json:"size_bytes"`
}

// NeedsRepair reports whether the record lacks a page count or upload time.
func (m FileMeta) NeedsRepair() bool {
	return m.PageCount == 0 || m.UploadTime == 0
}

// FileStatus is the coarse state shown in file listings.
type FileStatus string

const (
	// FileStatusUploaded means the PDF is stored but not parsed.
	FileStatusUploaded FileStatus = "uploaded"

	// FileStatusReady means the parsed body exists.
	FileStatusReady FileStatus = "ready"
)

// FileEntry is one row of the files listing.
type FileEntry struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	UploadTime float64    `json:"uploadTime"`
	PageCount  int        `json:"pageCount"`
	Status     FileStatus `json:"status"`
}

// ImageName formats the stored name of the index-th image on a page.
func ImageName(page, index int, ext string) string {
	return fmt.Sprintf("page%d_img%d.%s", page, index, ext)
}

var imageIndexPattern = regexp.MustCompile(`img(\d+)`)

// PageImagePattern matches stored image names for one page.
func PageImagePattern(page int) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?i)^page%d_img\d+\.(png|jpg|jpeg|gif|webp)$`, page))
}

// SortImageNames orders image names by their numeric image index,
// so page1_img10 sorts after page1_img2.
func SortImageNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return imageIndex(names[i]) < imageIndex(names[j])
	})
}

func imageIndex(name string) int {
	m := imageIndexPattern.FindStringSubmatch(name)
	if len(m) < 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
