package stubapi

import (
	"sort"

	"github.com/isajjim/estimator/internal/models"
)

type catalogEntry struct {
	label  string
	kind   string
	volume int
}

// catalog is what the simulated recognizer "finds". volume is in loading units.
var catalog = []catalogEntry{
	{"BED", "QUEEN_SIZE_BED", 4},
	{"WARDROBE", "MOVABLE_WARDROBE", 5},
	{"SOFA", "THREE_SEATER_SOFA", 4},
	{"DINING_TABLE", "FOUR_PERSON_DINING_TABLE", 3},
	{"REFRIGERATOR", "MOVABLE_REFRIGERATOR", 4},
	{"WASHING_MACHINE", "DRUM_WASHING_MACHINE", 3},
	{"MONITOR_TV", "", 1},
	{"DESK", "COMPUTER_DESK", 2},
	{"CHAIR_STOOL", "STANDARD_CHAIR", 1},
	{"BOX", "", 1},
}

const itemsPerImage = 3

// Truck capacities in loading units.
const (
	oneTonCapacity     = 10
	twoHalfTonCapacity = 25
	fiveTonCapacity    = 50
)

// analyze produces a deterministic furniture list for the given images.
// Furniture ids are unique within the estimate.
func analyze(imageURLs []string) models.AnalysisResult {
	result := models.AnalysisResult{Images: make([]models.ImageAnalysis, len(imageURLs))}
	var nextID int64
	for i, u := range imageURLs {
		list := make([]models.FurnitureItem, itemsPerImage)
		for k := range itemsPerImage {
			entry := catalog[(i*itemsPerImage+k)%len(catalog)]
			nextID++
			list[k] = models.FurnitureItem{
				FurnitureID: nextID,
				Label:       entry.label,
				Type:        entry.kind,
				Quantity:    1 + k%2,
			}
		}
		result.Images[i] = models.ImageAnalysis{ImageURL: u, FurnitureList: list}
	}
	result.Items = lineItems(result.Images)
	return result
}

// lineItems derives one FURNITURE aggregate per label plus the TRUCK line.
func lineItems(images []models.ImageAnalysis) []models.LineItem {
	counts := make(map[string]int)
	units := 0
	for _, img := range images {
		for _, item := range img.FurnitureList {
			counts[item.Label] += item.Quantity
			units += item.Quantity * volumeOf(item.Label)
		}
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	items := make([]models.LineItem, 0, len(labels)+1)
	for _, label := range labels {
		items = append(items, models.LineItem{Category: "FURNITURE", ItemType: label, Quantity: counts[label]})
	}
	return append(items, truckFor(units))
}

func truckFor(units int) models.LineItem {
	truck := models.LineItem{Category: models.CategoryTruck, Quantity: 1}
	switch {
	case units == 0:
		truck.ItemType, truck.Quantity = "TRUCK_1_TON", 0
	case units <= oneTonCapacity:
		truck.ItemType = "TRUCK_1_TON"
	case units <= twoHalfTonCapacity:
		truck.ItemType = "TRUCK_2_5_TON"
	default:
		truck.ItemType = "TRUCK_5_TON"
		truck.Quantity = (units + fiveTonCapacity - 1) / fiveTonCapacity
	}
	return truck
}

func volumeOf(label string) int {
	for _, entry := range catalog {
		if entry.label == label {
			return entry.volume
		}
	}
	return 1
}
