package game

// Champions is the full champion catalog. The playable subset is chosen
// through the rules config.
var Champions = []string{
	"Ashka",
	"Bakko",
	"Blossom",
	"Croak",
	"Destiny",
	"Ezmo",
	"Freya",
	"Iva",
	"Jade",
	"Jamila",
	"Jumong",
	"Lucie",
	"Oldur",
	"Pestilus",
	"Poloma",
	"Raigon",
	"Rook",
	"Ruh Kaan",
	"Shifu",
	"Sirius",
	"Taya",
	"Thorn",
	"Ulric",
	"Varesh",
	"Zander",
}

// Maps is the full map catalog.
var Maps = []string{
	"Mount Araz Day",
	"Mount Araz Night",
	"Orman Night",
	"Blackstone Day",
	"Blackstone Night",
	"Dragon Garden Day",
	"Dragon Garden Night",
	"Meriko Night",
}

// ValidChampion reports whether name is part of the catalog.
func ValidChampion(name string) bool {
	for _, c := range Champions {
		if c == name {
			return true
		}
	}
	return false
}

// ValidMap reports whether name is part of the catalog.
func ValidMap(name string) bool {
	for _, m := range Maps {
		if m == name {
			return true
		}
	}
	return false
}
