package model

// Package model defines the domain values passed through the download core:
// requests, probed metadata, format plans, progress events and outcomes.
// Values are plain structs passed by value; once built they are not mutated.
