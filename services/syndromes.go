package services

import (
	"math"
	"sort"

	"github.com/Bezalel011/Smartcare/models"
)

const SyndromeWindowDays = 7

// Syndromes maps each syndrome to the nurse-logged symptoms that count
// toward it.
var Syndromes = map[string][]string{
	"respiratory":      {"cough", "cold"},
	"gastrointestinal": {"diarrhea", "vomiting"},
	"febrile":          {"fever"},
}

type SyndromeScore struct {
	Syndrome string  `json:"syndrome"`
	Prob     float64 `json:"prob"`
	Rank     int     `json:"rank"`
}

// RankSyndromes scores each syndrome by its share of all symptom counts
// in logs and returns the top n. Nothing logged yields an empty list.
func RankSyndromes(logs []models.NurseLog, n int) []SyndromeScore {
	totals := make(map[string]int)
	all := 0
	for _, l := range logs {
		for symptom, count := range l.Counts.Data() {
			if count <= 0 {
				continue
			}
			totals[symptom] += count
			all += count
		}
	}
	out := []SyndromeScore{}
	if all == 0 {
		return out
	}

	for name, symptoms := range Syndromes {
		sum := 0
		for _, s := range symptoms {
			sum += totals[s]
		}
		if sum == 0 {
			continue
		}
		out = append(out, SyndromeScore{
			Syndrome: name,
			Prob:     math.Round(float64(sum)/float64(all)*1000) / 1000,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Prob != out[j].Prob {
			return out[i].Prob > out[j].Prob
		}
		return out[i].Syndrome < out[j].Syndrome
	})
	if len(out) > n {
		out = out[:n]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
