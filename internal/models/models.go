package models

// PickedImage is an image the user selected for upload. Source is a local file
// path or an http(s) URL that the image loader knows how to open.
type PickedImage struct {
	Source   string `json:"source" yaml:"source"`
	FileName string `json:"fileName,omitempty" yaml:"fileName,omitempty"`
	MimeType string `json:"mimeType" yaml:"mimeType"`
	Width    int    `json:"width" yaml:"width"`
	Height   int    `json:"height" yaml:"height"`
}

// UploadedImage is a PickedImage that has been written to storage.
// RemoteURI stays empty until its upload succeeded.
type UploadedImage struct {
	PickedImage `yaml:",inline"`
	RemoteURI   string `json:"remoteUri,omitempty" yaml:"remoteUri,omitempty"`
}

// FurnitureItem is one recognized object. FurnitureID is unique within an estimate.
type FurnitureItem struct {
	FurnitureID int64  `json:"furnitureId" yaml:"furnitureId" parquet:"furniture_id"`
	Label       string `json:"label" yaml:"label" parquet:"label"`
	Type        string `json:"type" yaml:"type" parquet:"type"`
	Quantity    int    `json:"quantity" yaml:"quantity" parquet:"quantity"`
}

// ImageAnalysis holds the furniture recognized on a single uploaded image.
type ImageAnalysis struct {
	ImageURL      string          `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	FurnitureList []FurnitureItem `json:"furnitureList" yaml:"furnitureList"`
}

// LineItem is an aggregate the server derives from the furniture list.
type LineItem struct {
	Category string `json:"category" yaml:"category"`
	ItemType string `json:"itemType" yaml:"itemType"`
	Quantity int    `json:"quantity" yaml:"quantity"`
}

// CategoryTruck marks the line item carrying the required truck size and count.
const CategoryTruck = "TRUCK"

// AnalysisResult is the finalized output of the analysis job for one estimate.
type AnalysisResult struct {
	Images []ImageAnalysis `json:"images" yaml:"images"`
	Items  []LineItem      `json:"items" yaml:"items"`
}

// Truck returns the TRUCK aggregate line item, if the server sent one.
func (r AnalysisResult) Truck() (LineItem, bool) {
	for _, item := range r.Items {
		if item.Category == CategoryTruck {
			return item, true
		}
	}
	return LineItem{}, false
}

// Furniture looks up an item by its furniture id.
func (r AnalysisResult) Furniture(furnitureID int64) (FurnitureItem, bool) {
	for _, img := range r.Images {
		for _, item := range img.FurnitureList {
			if item.FurnitureID == furnitureID {
				return item, true
			}
		}
	}
	return FurnitureItem{}, false
}

// SetQuantity rewrites the quantity of the matching item in place and reports
// whether an item was found. Every other item is left untouched.
func (r *AnalysisResult) SetQuantity(furnitureID int64, quantity int) bool {
	for i := range r.Images {
		list := r.Images[i].FurnitureList
		for j := range list {
			if list[j].FurnitureID == furnitureID {
				list[j].Quantity = quantity
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy so callers can read it without holding a lock.
func (r AnalysisResult) Clone() AnalysisResult {
	out := AnalysisResult{
		Images: make([]ImageAnalysis, len(r.Images)),
		Items:  append([]LineItem(nil), r.Items...),
	}
	for i, img := range r.Images {
		out.Images[i] = ImageAnalysis{
			ImageURL:      img.ImageURL,
			FurnitureList: append([]FurnitureItem(nil), img.FurnitureList...),
		}
	}
	return out
}

// AnalysisPhase is the state of the detail-submission / analysis sub-flow.
type AnalysisPhase string

const (
	PhaseCollectingDetails  AnalysisPhase = "COLLECTING_DETAILS"
	PhaseSubmitting         AnalysisPhase = "SUBMITTING"
	PhaseWaitingForAnalysis AnalysisPhase = "WAITING_FOR_ANALYSIS"
	PhaseReady              AnalysisPhase = "READY"
	PhaseFailed             AnalysisPhase = "FAILED"
)

// UpdateStatus drives the "recalculating" indicator while quantity edits are
// being reconciled with the server.
type UpdateStatus string

const (
	UpdatePrev     UpdateStatus = "prev"
	UpdateUpdating UpdateStatus = "updating"
	UpdateDone     UpdateStatus = "done"
)
