package entity

// DateLayout is the calendar date format used for stay dates and request ids
const DateLayout = "2006-01-02"

// DefaultCurrency applies to rooms and requests that do not name one
const DefaultCurrency = "INR"
