package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when a row does not exist
var ErrNotFound = errors.New("record not found")

// Category is the kind of case an investigation describes
type Category string

const (
	CategoryMissingPerson Category = "MISSING_PERSON"
	CategoryWantedPerson  Category = "WANTED_PERSON"
	CategoryStolenGoods   Category = "STOLEN_GOODS"
	CategoryUnknownDead   Category = "UNKNOWN_DEAD"
)

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	switch c {
	case CategoryMissingPerson, CategoryWantedPerson, CategoryStolenGoods, CategoryUnknownDead:
		return true
	}
	return false
}

// Priority controls how prominently an investigation is listed
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"
	PriorityNew    Priority = "new"
)

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	return p == PriorityNormal || p == PriorityUrgent || p == PriorityNew
}

// Label returns the German display label used in exports
func (p Priority) Label() string {
	switch p {
	case PriorityUrgent:
		return "Dringend"
	case PriorityNew:
		return "Neu"
	default:
		return "Normal"
	}
}

// Status is the publication state of an investigation
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// ContactInfo is the contact published with an investigation
type ContactInfo struct {
	Person string `json:"person"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
}

// Investigation is a public case posting
type Investigation struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	CaseNumber       string      `json:"case_number"`
	Slug             string      `json:"slug"`
	Category         Category    `json:"category"`
	Priority         Priority    `json:"priority"`
	Status           Status      `json:"status"`
	ShortDescription string      `json:"short_description"`
	Description      string      `json:"description"`
	Location         string      `json:"location"`
	Station          string      `json:"station"`
	Features         string      `json:"features"`
	Tags             []string    `json:"tags"`
	Date             *time.Time  `json:"date,omitempty"`
	Latitude         *float64    `json:"latitude,omitempty"`
	Longitude        *float64    `json:"longitude,omitempty"`
	Contact          ContactInfo `json:"contact_info"`
	CreatedBy        string      `json:"created_by"`
	PublishedAt      *time.Time  `json:"published_at,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
	Images           []Image     `json:"images,omitempty"`
}

// InvestigationInput is the writable part of an investigation
type InvestigationInput struct {
	Title            string      `json:"title"`
	CaseNumber       string      `json:"case_number"`
	Category         Category    `json:"category"`
	Priority         Priority    `json:"priority"`
	ShortDescription string      `json:"short_description"`
	Description      string      `json:"description"`
	Location         string      `json:"location"`
	Station          string      `json:"station"`
	Features         string      `json:"features"`
	Tags             []string    `json:"tags"`
	Date             string      `json:"date"`
	Latitude         *float64    `json:"latitude"`
	Longitude        *float64    `json:"longitude"`
	Contact          ContactInfo `json:"contact_info"`
}

// Image is an image attached to an investigation
type Image struct {
	ID              string    `json:"id"`
	InvestigationID string    `json:"investigation_id"`
	FileName        string    `json:"file_name"`
	URL             string    `json:"url"`
	AltText         string    `json:"alt_text"`
	Caption         string    `json:"caption"`
	Size            int64     `json:"size"`
	CreatedAt       time.Time `json:"created_at"`
}

// InvestigationFilter narrows an investigation listing
type InvestigationFilter struct {
	Category Category
	Status   Status
	// Search matches title and case number
	Search string
	Limit  int
	Offset int
}

// PageItem is one entry of a pagination bar: a page number or a gap
type PageItem struct {
	Page int  `json:"page,omitempty"`
	Gap  bool `json:"gap,omitempty"`
}

// InvestigationPage is one page of an investigation listing
type InvestigationPage struct {
	Items      []Investigation `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	TotalPages int             `json:"total_pages"`
	Pages      []PageItem      `json:"pages"`
}
