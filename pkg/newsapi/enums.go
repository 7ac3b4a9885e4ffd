package newsapi

import (
	"fmt"
	"strings"
)

// Country is a two-letter country filter for the sources listing. Empty means all.
type Country string

// Category filters the sources listing. Empty means all.
type Category string

const (
	CategoryAll           Category = ""
	CategoryBusiness      Category = "business"
	CategoryEntertainment Category = "entertainment"
	CategoryGeneral       Category = "general"
	CategoryHealth        Category = "health"
	CategoryScience       Category = "science"
	CategorySports        Category = "sports"
	CategoryTechnology    Category = "technology"
)

// Categories lists every concrete category.
var Categories = []Category{
	CategoryBusiness,
	CategoryEntertainment,
	CategoryGeneral,
	CategoryHealth,
	CategoryScience,
	CategorySports,
	CategoryTechnology,
}

const CountryAll Country = ""

// Countries lists the supported country codes.
var Countries = []Country{
	"ae", "ar", "at", "au", "be", "bg", "br", "ca", "ch", "cn", "co", "cu", "cz",
	"de", "eg", "fr", "gb", "gr", "hk", "hu", "id", "ie", "il", "in", "it", "jp",
	"kr", "lt", "lv", "ma", "mx", "my", "ng", "nl", "no", "nz", "ph", "pl", "pt",
	"ro", "rs", "ru", "sa", "se", "sg", "si", "sk", "th", "tr", "tw", "ua", "us",
	"ve", "za",
}

// ParseCountry validates a country code; "" and "all" select every country.
func ParseCountry(raw string) (Country, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == "all" {
		return CountryAll, nil
	}
	for _, c := range Countries {
		if string(c) == raw {
			return c, nil
		}
	}
	return CountryAll, fmt.Errorf("unknown country %q", raw)
}

// ParseCategory validates a category; "" and "all" select every category.
func ParseCategory(raw string) (Category, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == "all" {
		return CategoryAll, nil
	}
	for _, c := range Categories {
		if string(c) == raw {
			return c, nil
		}
	}
	return CategoryAll, fmt.Errorf("unknown category %q", raw)
}
