package domain

import "time"

// Platform identifies the store a review came from. The value doubles as the
// source label written into cleaned files and as part of raw file names.
type Platform string

const (
	GooglePlay Platform = "google_play"
	AppStore   Platform = "apple_store"
)

// Platforms lists every supported store in processing order.
var Platforms = []Platform{GooglePlay, AppStore}

// CleanedReview is the fixed-shape projection of one cleaned row, used by
// sinks that need typed columns instead of the CSV's open column set.
type CleanedReview struct {
	Source     string
	SourceID   string
	Author     *string
	Rating     *int
	Text       string
	CleanText  string
	ReviewedAt *time.Time
	RawJSON    []byte // full cleaned row
}
