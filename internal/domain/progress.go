package domain

import (
	"fmt"
	"time"
)

// DefaultGoal is the subscriber target rendered when config does not override it.
const DefaultGoal = 100

// ProgressMetric is a live subscriber count measured against a goal.
type ProgressMetric struct {
	Count int
	Goal  int
}

// NewProgressMetric validates count and goal before any rendering happens.
func NewProgressMetric(count, goal int) (ProgressMetric, error) {
	if goal <= 0 {
		return ProgressMetric{}, fmt.Errorf("%w: goal must be positive, got %d", ErrInvalidArgument, goal)
	}
	if count < 0 {
		return ProgressMetric{}, fmt.Errorf("%w: count must not be negative, got %d", ErrInvalidArgument, count)
	}
	return ProgressMetric{Count: count, Goal: goal}, nil
}

// Ratio is count/goal clamped to 1. The count itself is never clamped.
func (m ProgressMetric) Ratio() float64 {
	if m.Goal <= 0 {
		return 0
	}
	ratio := float64(m.Count) / float64(m.Goal)
	if ratio > 1 {
		return 1
	}
	if ratio < 0 {
		return 0
	}
	return ratio
}

// Percentage returns Ratio scaled to 0..100.
func (m ProgressMetric) Percentage() float64 {
	return m.Ratio() * 100
}

// CountLabel is the headline text, e.g. "250 / 100 Subscribers".
func (m ProgressMetric) CountLabel() string {
	return fmt.Sprintf("%d / %d Subscribers", m.Count, m.Goal)
}

// PercentageLabel is the caption under the bar, e.g. "42.0%".
func (m ProgressMetric) PercentageLabel() string {
	return fmt.Sprintf("%.1f%%", m.Percentage())
}

// Destination enumerates upload targets for a rendered banner.
type Destination string

const (
	DestinationBanner Destination = "banner"
	DestinationDrive  Destination = "drive"
)

// Valid reports whether the destination is one of the known variants.
func (d Destination) Valid() bool {
	return d == DestinationBanner || d == DestinationDrive
}

// Publication describes a banner that reached its destination.
type Publication struct {
	ChannelID   string
	Count       int
	Goal        int
	Destination Destination
	RemoteID    string
	URL         string
	PublishedAt time.Time
}

// Unchanged reports whether the publication already shows the given metric.
func (p Publication) Unchanged(m ProgressMetric) bool {
	return p.Count == m.Count && p.Goal == m.Goal
}
