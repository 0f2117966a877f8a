package model

import "slices"

// topicIndustries maps a bill topic to the donor industries counted when a
// donation summary is filtered by that topic.
var topicIndustries = map[string][]string{
	"Health":                {"Health Professionals", "Pharmaceuticals", "Health Services", "Hospitals & Nursing Homes"},
	"Finance":               {"Real Estate", "Commercial Banks", "Securities & Investment", "Insurance", "Finance"},
	"Technology":            {"Telecom Services", "Internet", "Electronics"},
	"Defense":               {"Defense Aerospace"},
	"Energy":                {"Oil & Gas", "Electric Utilities", "Gas Utilities"},
	"Law":                   {"Lawyers & Lobbyists", "Consulting", "Business Services"},
	"Education":             {"Education"},
	"Foreign Relations":     {"Pro-Israel"},
	"Government Operations": {"Government"},
}

// Topics lists the known topics in alphabetical order.
func Topics() []string {
	out := make([]string, 0, len(topicIndustries))
	for t := range topicIndustries {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// TopicIndustries returns the industries of topic, or nil for an unknown
// topic.
func TopicIndustries(topic string) []string {
	return slices.Clone(topicIndustries[topic])
}
