package models

import "github.com/shopspring/decimal"

// FilterKind names the single dimension a listing query is restricted on.
type FilterKind string

const (
	FilterDepartment FilterKind = "department"
	FilterPriceRange FilterKind = "price"
	FilterTypeName   FilterKind = "type"
	FilterSizeRange  FilterKind = "size"
	FilterBedrooms   FilterKind = "bedrooms"
	FilterFloors     FilterKind = "floors"
	FilterParking    FilterKind = "parking"
	FilterFurnished  FilterKind = "furnished"
)

// PublicationFilter is a closed set: only the types in this file implement it,
// so every query carries exactly one filter dimension.
type PublicationFilter interface {
	Kind() FilterKind
	sealed()
}

type DepartmentFilter struct{ Department string }

type PriceRangeFilter struct{ Min, Max decimal.Decimal }

type TypeNameFilter struct{ Name string }

type SizeRangeFilter struct{ Min, Max decimal.Decimal }

type BedroomsFilter struct{ Count int }

type FloorsFilter struct{ Count int }

type ParkingFilter struct{ Count int }

type FurnishedFilter struct{ Furnished bool }

func (DepartmentFilter) Kind() FilterKind { return FilterDepartment }
func (PriceRangeFilter) Kind() FilterKind { return FilterPriceRange }
func (TypeNameFilter) Kind() FilterKind   { return FilterTypeName }
func (SizeRangeFilter) Kind() FilterKind  { return FilterSizeRange }
func (BedroomsFilter) Kind() FilterKind   { return FilterBedrooms }
func (FloorsFilter) Kind() FilterKind     { return FilterFloors }
func (ParkingFilter) Kind() FilterKind    { return FilterParking }
func (FurnishedFilter) Kind() FilterKind  { return FilterFurnished }

func (DepartmentFilter) sealed() {}
func (PriceRangeFilter) sealed() {}
func (TypeNameFilter) sealed()   {}
func (SizeRangeFilter) sealed()  {}
func (BedroomsFilter) sealed()   {}
func (FloorsFilter) sealed()     {}
func (ParkingFilter) sealed()    {}
func (FurnishedFilter) sealed()  {}
