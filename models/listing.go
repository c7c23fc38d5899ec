package models

import (
	"encoding/json"
	"time"
)

// Coordinates is the geo point attached to an open-data listing.
type Coordinates struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// RawListing holds one accommodation exactly as returned by the open-data API.
// column_10 carries the nightly price and column_19 the country; column_20 is
// never read.
type RawListing struct {
	ID                          json.Number  `json:"id"`
	Name                        string       `json:"name"`
	HostID                      json.Number  `json:"host_id"`
	Neighbourhood               string       `json:"neighbourhood"`
	City                        string       `json:"city"`
	RoomType                    string       `json:"room_type"`
	Price                       *float64     `json:"column_10"`
	Country                     string       `json:"column_19"`
	MinimumNights               *int         `json:"minimum_nights"`
	NumberOfReviews             *int         `json:"number_of_reviews"`
	LastReview                  string       `json:"last_review"`
	ReviewsPerMonth             *float64     `json:"reviews_per_month"`
	CalculatedHostListingsCount *int         `json:"calculated_host_listings_count"`
	Availability365             *int         `json:"availability_365"`
	UpdatedDate                 string       `json:"updated_date"`
	Coordinates                 *Coordinates `json:"coordinates"`
}

// ListingRecord is the cleaned accommodation ready for PostgreSQL storage.
// Reconciliation only reads ID, AddressLine1 and City.
type ListingRecord struct {
	ID                          string
	Name                        string
	HostID                      string
	AddressLine1                string
	AddressLine2                string
	Neighbourhood               string
	City                        string
	Country                     string
	RoomType                    string
	RoomPrice                   *float64
	MinimumNights               *int
	NumberOfReviews             *int
	LastReview                  string
	ReviewsPerMonth             *float64
	CalculatedHostListingsCount *int
	Availability365             *int
	UpdatedDate                 string
	Latitude                    *float64
	Longitude                   *float64
	Geohash                     string
	CleanedAt                   time.Time
}
