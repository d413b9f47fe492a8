package filesystem

import "strings"

var mimeTypes = map[string]string{
	// documents
	".pdf":     "application/pdf",
	".doc":     "application/msword",
	".docx":    "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":     "application/vnd.ms-excel",
	".xlsx":    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":     "application/vnd.ms-powerpoint",
	".pptx":    "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".odt":     "application/vnd.oasis.opendocument.text",
	".ods":     "application/vnd.oasis.opendocument.spreadsheet",
	".odp":     "application/vnd.oasis.opendocument.presentation",
	".rtf":     "application/rtf",
	".pages":   "application/vnd.apple.pages",
	".numbers": "application/vnd.apple.numbers",
	".key":     "application/vnd.apple.keynote",
	".epub":    "application/epub+zip",

	// text
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".csv":      "text/csv",
	".tsv":      "text/tab-separated-values",
	".html":     "text/html",
	".htm":      "text/html",
	".css":      "text/css",
	".xml":      "application/xml",
	".json":     "application/json",
	".yaml":     "application/yaml",
	".yml":      "application/yaml",
	".toml":     "application/toml",
	".log":      "text/plain",
	".tex":      "application/x-tex",

	// images
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".heic": "image/heic",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".ico":  "image/vnd.microsoft.icon",
	".psd":  "image/vnd.adobe.photoshop",

	// archives
	".zip": "application/zip",
	".tar": "application/x-tar",
	".gz":  "application/gzip",
	".tgz": "application/gzip",
	".bz2": "application/x-bzip2",
	".xz":  "application/x-xz",
	".7z":  "application/x-7z-compressed",
	".rar": "application/vnd.rar",
	".dmg": "application/x-apple-diskimage",

	// data science
	".ipynb":   "application/x-ipynb+json",
	".parquet": "application/vnd.apache.parquet",
	".feather": "application/vnd.apache.arrow.file",
	".arrow":   "application/vnd.apache.arrow.file",
	".npy":     "application/octet-stream",
	".pkl":     "application/octet-stream",
	".h5":      "application/x-hdf5",
	".hdf5":    "application/x-hdf5",
	".rds":     "application/octet-stream",

	// databases
	".db":      "application/vnd.sqlite3",
	".sqlite":  "application/vnd.sqlite3",
	".sqlite3": "application/vnd.sqlite3",
	".sql":     "application/sql",

	// media
	".mp3": "audio/mpeg",
	".wav": "audio/wav",
	".m4a": "audio/mp4",
	".mp4": "video/mp4",
	".mov": "video/quicktime",
}

// mimeType returns the MIME type registered for ext, or "" when unknown
func mimeType(ext string) string {
	return mimeTypes[strings.ToLower(ext)]
}
