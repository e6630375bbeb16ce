package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncompleteAnswers is returned when a detail answer is missing.
var ErrIncompleteAnswers = errors.New("all property details must be answered")

type BuildingType string

const (
	BuildingVilla      BuildingType = "VILLA"
	BuildingOfficetel  BuildingType = "OFFICETEL"
	BuildingHouse      BuildingType = "HOUSE"
	BuildingApartment  BuildingType = "APARTMENT"
	BuildingCommercial BuildingType = "COMMERCIAL"
)

type RoomType string

const (
	RoomOne        RoomType = "ONE_ROOM"
	RoomOneAndHalf RoomType = "ONE_AND_HALF_ROOM"
	RoomTwo        RoomType = "TWO_ROOM"
	RoomThree      RoomType = "THREE_ROOM"
	RoomFour       RoomType = "FOUR_ROOM"
	RoomFivePlus   RoomType = "FIVE_PLUS_ROOM"
)

// RoomSize buckets are expressed in pyeong.
type RoomSize string

const (
	SizeUnder10 RoomSize = "UNDER_10"
	Size10To15  RoomSize = "BETWEEN_10_15"
	Size15To20  RoomSize = "BETWEEN_15_20"
	Size20To25  RoomSize = "BETWEEN_20_25"
	Size25To30  RoomSize = "BETWEEN_25_30"
	Size30To40  RoomSize = "BETWEEN_30_40"
	Size40To50  RoomSize = "BETWEEN_40_50"
	SizeOver50  RoomSize = "OVER_50"
)

type Floor string

const (
	FloorBasement Floor = "BASEMENT"
	FloorFirst    Floor = "FIRST"
	FloorSecond   Floor = "SECOND"
	FloorThird    Floor = "THIRD"
	FloorFourth   Floor = "FOURTH"
	FloorFifth    Floor = "FIFTH"
	FloorSixToTen Floor = "SIXTH_TO_TENTH"
	FloorOverTen  Floor = "OVER_TENTH"
)

// LadderTruck answers whether a ladder truck is needed for the move.
type LadderTruck string

const (
	LadderRequired    LadderTruck = "REQUIRED"
	LadderNotRequired LadderTruck = "NOT_REQUIRED"
	LadderUnsure      LadderTruck = "UNSURE"
)

var (
	buildingTypes = []BuildingType{BuildingVilla, BuildingOfficetel, BuildingHouse, BuildingApartment, BuildingCommercial}
	roomTypes     = []RoomType{RoomOne, RoomOneAndHalf, RoomTwo, RoomThree, RoomFour, RoomFivePlus}
	roomSizes     = []RoomSize{SizeUnder10, Size10To15, Size15To20, Size20To25, Size25To30, Size30To40, Size40To50, SizeOver50}
	floors        = []Floor{FloorBasement, FloorFirst, FloorSecond, FloorThird, FloorFourth, FloorFifth, FloorSixToTen, FloorOverTen}
	ladderTrucks  = []LadderTruck{LadderRequired, LadderNotRequired, LadderUnsure}
)

// DetailAnswers are the property-detail questions asked before analysis.
// A nil field means the question has not been answered yet.
type DetailAnswers struct {
	BuildingType      *BuildingType `json:"buildingType" yaml:"buildingType"`
	RoomType          *RoomType     `json:"roomType" yaml:"roomType"`
	RoomSize          *RoomSize     `json:"roomSize" yaml:"roomSize"`
	Floor             *Floor        `json:"floor" yaml:"floor"`
	HasElevator       *bool         `json:"hasElevator" yaml:"hasElevator"`
	IsDuplex          *bool         `json:"isDuplex" yaml:"isDuplex"`
	HasSeparateStairs *bool         `json:"hasSeparateStairs" yaml:"hasSeparateStairs"`
	HasParking        *bool         `json:"hasParking" yaml:"hasParking"`
	NeedsLadderTruck  *LadderTruck  `json:"needsLadderTruck" yaml:"needsLadderTruck"`
}

// Missing lists the JSON names of unanswered questions.
func (a DetailAnswers) Missing() []string {
	var missing []string
	check := func(name string, answered bool) {
		if !answered {
			missing = append(missing, name)
		}
	}
	check("buildingType", a.BuildingType != nil)
	check("roomType", a.RoomType != nil)
	check("roomSize", a.RoomSize != nil)
	check("floor", a.Floor != nil)
	check("hasElevator", a.HasElevator != nil)
	check("isDuplex", a.IsDuplex != nil)
	check("hasSeparateStairs", a.HasSeparateStairs != nil)
	check("hasParking", a.HasParking != nil)
	check("needsLadderTruck", a.NeedsLadderTruck != nil)
	return missing
}

// Validate reports unanswered questions and values outside the known buckets.
func (a DetailAnswers) Validate() error {
	if missing := a.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteAnswers, strings.Join(missing, ", "))
	}
	if !oneOf(*a.BuildingType, buildingTypes) {
		return fmt.Errorf("unknown building type %q", *a.BuildingType)
	}
	if !oneOf(*a.RoomType, roomTypes) {
		return fmt.Errorf("unknown room type %q", *a.RoomType)
	}
	if !oneOf(*a.RoomSize, roomSizes) {
		return fmt.Errorf("unknown room size %q", *a.RoomSize)
	}
	if !oneOf(*a.Floor, floors) {
		return fmt.Errorf("unknown floor %q", *a.Floor)
	}
	if !oneOf(*a.NeedsLadderTruck, ladderTrucks) {
		return fmt.Errorf("unknown ladder truck answer %q", *a.NeedsLadderTruck)
	}
	return nil
}

func oneOf[T comparable](v T, allowed []T) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
