// Package classify produces ranked (category, subtype, confidence)
// candidates for a project description and blends vision evidence into the
// top candidate's score.
package classify

// Categories is the fixed closed category set, in tiebreak order.
var Categories = []string{
	"repair",
	"renovation",
	"installation",
	"maintenance",
	"construction",
	"landscaping",
	"cleaning",
	"other",
}

// Subtypes maps each category to its registered subtype list. The first
// entry is the normalization default for invalid combinations.
var Subtypes = map[string][]string{
	"repair":       {"plumbing", "electrical", "roofing", "appliance", "hvac", "structural", "other"},
	"renovation":   {"kitchen", "bathroom", "basement", "whole_house", "room_addition", "flooring", "other"},
	"installation": {"appliance", "flooring", "window", "door", "fixture", "system", "other"},
	"maintenance":  {"hvac", "plumbing", "electrical", "general", "seasonal", "other"},
	"construction": {"addition", "new_build", "garage", "deck", "shed", "other"},
	"landscaping":  {"lawn", "garden", "tree", "irrigation", "hardscape", "other"},
	"cleaning":     {"general", "deep", "window", "carpet", "pressure_washing", "other"},
	"other":        {"other"},
}

// visionKeywords is consulted when blending vision labels into the primary
// candidate's confidence. Only the primary's category set is used.
var visionKeywords = map[string][]string{
	"repair":       {"damage", "broken", "leaking", "cracked", "worn"},
	"renovation":   {"remodel", "upgrade", "modernize", "transform", "update"},
	"installation": {"install", "new", "setup", "mount", "fixture"},
	"maintenance":  {"clean", "maintain", "service", "tune", "seasonal"},
	"construction": {"build", "construct", "structure", "frame", "foundation"},
	"landscaping":  {"garden", "plant", "lawn", "outdoor", "landscape"},
	"cleaning":     {"clean", "wash", "sanitize", "debris", "dirt"},
}

// descriptionKeywords drives the default scorer: category -> subtype ->
// tokens that vote for that pair.
var descriptionKeywords = map[string]map[string][]string{
	"repair": {
		"plumbing":   {"leak", "pipe", "faucet", "drain", "plumbing"},
		"electrical": {"outlet", "wiring", "breaker", "electrical"},
		"roofing":    {"roof", "shingle", "gutter", "shingles"},
		"appliance":  {"dishwasher", "refrigerator", "oven"},
		"hvac":       {"furnace", "ac", "heater"},
		"structural": {"foundation", "beam", "sagging"},
	},
	"renovation": {
		"kitchen":     {"kitchen", "remodel", "cabinet", "cabinets", "countertop"},
		"bathroom":    {"bathroom", "shower", "tub", "vanity"},
		"basement":    {"basement"},
		"whole_house": {"gut", "renovation"},
		"flooring":    {"hardwood", "laminate", "refinish"},
	},
	"installation": {
		"appliance": {"install", "installation"},
		"window":    {"window", "windows"},
		"door":      {"door", "doors"},
		"fixture":   {"fixture", "mount", "chandelier"},
	},
	"maintenance": {
		"hvac":     {"tune", "service", "servicing"},
		"general":  {"maintenance", "maintain", "upkeep"},
		"seasonal": {"winterize", "seasonal"},
	},
	"construction": {
		"addition":  {"addition", "extension"},
		"new_build": {"build", "construct", "framing"},
		"garage":    {"garage"},
		"deck":      {"deck", "porch"},
		"shed":      {"shed"},
	},
	"landscaping": {
		"lawn":       {"lawn", "grass", "sod"},
		"garden":     {"garden", "plant", "planting"},
		"tree":       {"tree", "trees", "stump"},
		"irrigation": {"sprinkler", "irrigation"},
		"hardscape":  {"patio", "paver", "retaining"},
	},
	"cleaning": {
		"general":          {"clean", "cleaning"},
		"deep":             {"sanitize"},
		"carpet":           {"carpet"},
		"pressure_washing": {"pressure", "wash", "washing"},
	},
}

// DefaultSubtype returns the first registered subtype for a category.
func DefaultSubtype(category string) string {
	if subs := Subtypes[category]; len(subs) > 0 {
		return subs[0]
	}
	return "other"
}

// NormalizeSubtype replaces a subtype outside the category's registered
// set with the category's default.
func NormalizeSubtype(category, subtype string) string {
	for _, s := range Subtypes[category] {
		if s == subtype {
			return subtype
		}
	}
	return DefaultSubtype(category)
}
