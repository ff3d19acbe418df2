package model

import "time"

type Cinema struct {
	Id   string `json:"id"`
	Name string `json:"name"`
	City string `json:"city"`
}

type Film struct {
	Id            string `json:"id"`
	Title         string `json:"title"`
	OriginalTitle string `json:"originalTitle"`
	ContentRating string `json:"contentRating"`
	Duration      string `json:"duration"`
}

type ShowDate struct {
	Id        string `json:"id"`
	Date      string `json:"date"`
	DayOfWeek string `json:"dayOfWeek"`
	IsToday   bool   `json:"isToday"`
}

type Session struct {
	Id               string    `json:"id"`
	Hall             string    `json:"hall"`
	StartsAt         time.Time `json:"startsAt"`
	Price            float64   `json:"price"`
	Type             []string  `json:"type"`
	HasSeatSelection bool      `json:"hasSeatSelection"`
}
