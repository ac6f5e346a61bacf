package core

import (
	"database/sql/driver"
	"fmt"
)

// Category is the closed set of expense categories. The zero value is Others.
type Category int

const (
	CategoryOthers Category = iota
	CategoryFood
	CategoryGrocery
	CategoryUtilities
	CategoryJewellery
	CategoryBill
	CategoryMedicine
	CategoryFurniture
	CategoryMaintenance
	CategoryTransport
	CategoryShopping
	CategoryHealth
	CategoryEntertainment
	CategoryEducation
)

// categoryOrder is the display order; Others closes the list.
var categoryOrder = []Category{
	CategoryFood,
	CategoryGrocery,
	CategoryUtilities,
	CategoryJewellery,
	CategoryBill,
	CategoryMedicine,
	CategoryFurniture,
	CategoryMaintenance,
	CategoryTransport,
	CategoryShopping,
	CategoryHealth,
	CategoryEntertainment,
	CategoryEducation,
	CategoryOthers,
}

var categoryNames = map[Category]string{
	CategoryOthers:        "Others",
	CategoryFood:          "Food",
	CategoryGrocery:       "Grocery",
	CategoryUtilities:     "Utilities",
	CategoryJewellery:     "Jewellery",
	CategoryBill:          "Bill",
	CategoryMedicine:      "Medicine",
	CategoryFurniture:     "Furniture",
	CategoryMaintenance:   "Maintenance",
	CategoryTransport:     "Transport",
	CategoryShopping:      "Shopping",
	CategoryHealth:        "Health",
	CategoryEntertainment: "Entertainment",
	CategoryEducation:     "Education",
}

// CategoryNames returns the category names in display order.
func CategoryNames() []string {
	out := make([]string, len(categoryOrder))
	for i, c := range categoryOrder {
		out[i] = c.String()
	}
	return out
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return categoryNames[CategoryOthers]
}

// ParseCategory matches s exactly, case included. Anything else yields
// (CategoryOthers, false).
func ParseCategory(s string) (Category, bool) {
	for c, name := range categoryNames {
		if name == s {
			return c, true
		}
	}
	return CategoryOthers, false
}

// CategoryOrOthers is ParseCategory without the match flag.
func CategoryOrOthers(s string) Category {
	c, _ := ParseCategory(s)
	return c
}

// Scan implements sql.Scanner. Free-text legacy values scan as Others.
func (c *Category) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = CategoryOthers
	case string:
		*c = CategoryOrOthers(v)
	case []byte:
		*c = CategoryOrOthers(string(v))
	default:
		return fmt.Errorf("scan category: unsupported type %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (c Category) Value() (driver.Value, error) {
	return c.String(), nil
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	*c = CategoryOrOthers(string(b))
	return nil
}
