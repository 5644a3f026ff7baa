package mcp

// ListAssetsInput represents input for the list_assets tool
type ListAssetsInput struct {
	OutputDir string `json:"output_dir" jsonschema:"build output directory to scan"`
}

// ListAssetsOutput represents output from the list_assets tool
type ListAssetsOutput struct {
	Upload []AssetInfo `json:"upload"`
	Delete []string    `json:"delete"`
}

// AssetInfo represents a file that would be uploaded
type AssetInfo struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	UploadedName string `json:"uploaded_name"`
}

// CreateReleaseInput represents input for the create_release tool
type CreateReleaseInput struct{}

// CreateReleaseOutput represents output from the create_release tool
type CreateReleaseOutput struct {
	Success  bool     `json:"success"`
	Release  string   `json:"release"`
	Projects []string `json:"projects"`
	Error    string   `json:"error,omitempty"`
}

// UploadSourceMapsInput represents input for the upload_sourcemaps tool
type UploadSourceMapsInput struct {
	OutputDir   string `json:"output_dir" jsonschema:"build output directory to upload from"`
	SkipRelease bool   `json:"skip_release,omitempty" jsonschema:"set to true if the release already exists"`
}

// UploadSourceMapsOutput represents output from the upload_sourcemaps tool
type UploadSourceMapsOutput struct {
	Release  string   `json:"release"`
	Uploaded []string `json:"uploaded"`
	Failed   []string `json:"failed,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// CleanSourceMapsInput represents input for the clean_sourcemaps tool
type CleanSourceMapsInput struct {
	OutputDir string `json:"output_dir" jsonschema:"build output directory to clean"`
}

// CleanSourceMapsOutput represents output from the clean_sourcemaps tool
type CleanSourceMapsOutput struct {
	Deleted []string `json:"deleted"`
	Errors  []string `json:"errors,omitempty"`
}
