package models

// Segments of the user dimension
var Segments = []string{"retail", "business", "vip"}

// Regions are US state codes. WA appears twice, which skews its share.
var Regions = []string{
	"CA", "NY", "TX", "FL", "WA", "IL", "MA", "NJ", "PA", "GA",
	"OH", "MI", "NC", "VA", "AZ", "CO", "WA", "OR", "MN", "WI",
}

// Categories of the product dimension, in generation order
var Categories = []string{"card", "credit", "deposit", "invest", "insure"}

// ProductNames lists the product names offered per category.
var ProductNames = map[string][]string{
	"card":    {"Debit Card", "Travel Card", "Cashback Card", "Platinum Card", "Student Card"},
	"credit":  {"Personal Loan", "Auto Loan", "Credit Line", "Micro Loan", "BNPL"},
	"deposit": {"Savings Account", "Checking Account", "CD Account", "Money Market", "High-Yield Savings"},
	"invest":  {"Brokerage", "Robo Advisor", "ETF Basket", "Retirement IRA", "Crypto Wallet"},
	"insure":  {"Term Insurance", "Health Cover", "Accident Cover", "Home Insurance", "Device Protection"},
}
