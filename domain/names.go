package domain

import "math/rand"

// Display names are generated haikunator-style: a capitalized adjective
// noun pair, friendly enough to tell collaborators apart until they pick
// their own name.

var nameAdjectives = []string{
	"Ancient", "Bold", "Calm", "Crimson", "Curly", "Dawn", "Dry",
	"Fancy", "Gentle", "Icy", "Late", "Lively", "Misty", "Nameless",
	"Patient", "Quiet", "Rapid", "Silent", "Snowy", "Twilight",
	"Wandering", "Wild", "Withered", "Young",
}

var nameNouns = []string{
	"Breeze", "Brook", "Cloud", "Darkness", "Dew", "Field", "Fire",
	"Firefly", "Forest", "Frost", "Glade", "Haze", "Hill", "Lake",
	"Meadow", "Moon", "Pine", "Rain", "River", "Sea", "Shadow", "Sky",
	"Sound", "Star", "Sun", "Thunder", "Violet", "Water", "Wave",
	"Wood",
}

func GenerateDisplayName() string {
	adjective := nameAdjectives[rand.Intn(len(nameAdjectives))]
	noun := nameNouns[rand.Intn(len(nameNouns))]
	return adjective + " " + noun
}
