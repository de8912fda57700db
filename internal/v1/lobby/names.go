package lobby

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

// Word lists for generated display names. Players who skip picking a name get
// a readable two-word handle instead of a bare UUID.
var (
	nameAdjectives = []string{
		"amber", "brisk", "bold", "calm", "clever", "crimson", "daring",
		"eager", "fierce", "gentle", "golden", "hasty", "icy", "jolly",
		"keen", "lucky", "mellow", "nimble", "proud", "quick", "rapid",
		"silent", "swift", "wild",
	}
	nameNouns = []string{
		"badger", "bison", "condor", "cougar", "falcon", "ferret", "fox",
		"hawk", "heron", "ibex", "jackal", "lynx", "marten", "otter",
		"panther", "puffin", "raven", "salmon", "stoat", "tiger", "viper",
		"walrus", "weasel", "wolf",
	}
)

// randomDisplayName returns a random two-word display name like "swift otter".
func randomDisplayName() string {
	adjective := nameAdjectives[rand.IntN(len(nameAdjectives))]
	noun := nameNouns[rand.IntN(len(nameNouns))]
	return fmt.Sprintf("%s %s", adjective, noun)
}

// newRoomID returns a uniform 6-digit numeric room id.
func newRoomID() string {
	return strconv.Itoa(rand.IntN(900000) + 100000)
}
