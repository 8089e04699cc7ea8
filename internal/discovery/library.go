package discovery

import "tunecrawl/internal/track"

// Source tags recorded on the tracks each built-in source produces.
const (
	TagCore  = "FreeMusicArchive"
	TagWeb   = "WebDiscovery"
	TagGenre = "GenreExpansion"
	TagFresh = "FreshCrawl"
)

const fmaBase = "https://files.freemusicarchive.org/storage-freemusicarchive-org/music/"

// KnownURLs lists the playable audio locations the curated library draws on.
var KnownURLs = []string{
	fmaBase + "no_curator/Tours/Enthusiast/Tours_-_01_-_Enthusiast.mp3",
	fmaBase + "no_curator/FASSounds/Chill_Lofi/FASSounds_-_Chill_Lofi.mp3",
	fmaBase + "no_curator/Ghostrifter_Official/Inspiring_Upbeat/Ghostrifter_Official_-_Digital_Dreams.mp3",
	fmaBase + "no_curator/Scott_Buckley/Chrysalis/Scott_Buckley_-_05_-_A_Starry_Eyed_Constellation.mp3",
	fmaBase + "no_curator/patchwork_urban/Urban_Culture/patchwork_urban_-_01_-_Urban_Culture.mp3",
	fmaBase + "no_curator/Beauty_Flow/Best_of_2019/Beauty_Flow_-_01_-_Jazzy_Abstract_Beat.mp3",
	fmaBase + "no_curator/Tokyo_Music_Walker/Rising_Tide/Tokyo_Music_Walker_-_05_-_Sunset_Drive.mp3",
	fmaBase + "no_curator/AERHEAD/Chillhop_Daydreams_2/AERHEAD_-_01_-_Lights_Of_Elysium.mp3",
	fmaBase + "no_curator/Cxdy/Type_Beat_Blues/Cxdy_-_Type_Beat_Blues.mp3",
	fmaBase + "no_curator/Ghostrifter_Official/Inspiring_Upbeat/Ghostrifter_Official_-_Morning_Routine.mp3",
	fmaBase + "no_curator/patchwork_urban/Urban_Culture/patchwork_urban_-_04_-_Retro_Funk.mp3",
	fmaBase + "no_curator/patchwork_urban/Urban_Culture/patchwork_urban_-_06_-_Dream_Waves.mp3",
	fmaBase + "no_curator/Scott_Buckley/Solstice/Scott_Buckley_-_01_-_Terminus.mp3",
	fmaBase + "ccCommunity/Scott_Buckley/Chrysalis/Scott_Buckley_-_01_-_A_Stroll_Through_the_Clouds.mp3",
	"https://www.soundjay.com/button/sounds/button-09.wav",
	"https://www.soundjay.com/button/sounds/button-10.wav",
	"https://www.soundjay.com/button/sounds/button-17.wav",
}

func entry(title, artist string, urlIndex int, genre string, popularity int) track.Fields {
	return track.Fields{
		Title:      title,
		Artist:     artist,
		URL:        KnownURLs[urlIndex],
		Genre:      genre,
		Popularity: popularity,
	}
}

// CoreLibrary is the curated base set. It doubles as the fallback batch.
func CoreLibrary() []track.Fields {
	return []track.Fields{
		entry("Synthwave Dreams", "Neon Waves", 0, "electronic", 95),
		entry("Lofi Study Session", "Chillhop Masters", 1, "lofi", 88),
		entry("Digital Revolution", "Tech Beats", 4, "electronic", 87),
		entry("Space Exploration", "Cosmic Drone", 3, "ambient", 89),
		entry("Urban Culture", "Lofi Dreamer", 5, "lofi", 84),
		entry("Morning Coffee", "Jazz Collective", 6, "jazz", 82),
		entry("Cyberpunk Streets", "Neon District", 7, "electronic", 91),
		entry("Study Focus", "Concentration Beats", 8, "lofi", 83),
		entry("Night Drive", "Synthwave Express", 9, "electronic", 90),
		entry("Retro Funk", "Groovy Juice", 10, "funk", 86),
	}
}

// WebLibrary is the set served by the web discovery source.
func WebLibrary() []track.Fields {
	return []track.Fields{
		entry("Ambient Journey", "Sound Explorer", 11, "ambient", 81),
		entry("Epic Cinematic", "Orchestral Dimensions", 12, "cinematic", 92),
		entry("Dream Waves", "Ocean Bay", 13, "ambient", 79),
		entry("Starry Night", "Cosmic Explorer", 2, "ambient", 85),
	}
}

// FreshLibrary is the set served by the fresh crawl source.
func FreshLibrary() []track.Fields {
	return []track.Fields{
		entry("New Discovery - Electronic", "Fresh Find", 1, "electronic", 87),
		entry("Latest Lofi", "New Artist", 5, "lofi", 84),
		entry("Recent Ambient", "Discovery Bot", 11, "ambient", 82),
		entry("New Jazz Fusion", "Modern Jazz", 6, "jazz", 79),
	}
}

// GenreSeed is one title the genre expansion source emits for a genre.
type GenreSeed struct {
	Title      string
	Artist     string
	Popularity int
}

// GenreTable maps a genre to its expansion titles.
type GenreTable struct {
	Genre string
	Seeds []GenreSeed
}

// DefaultGenreTables lists the genre expansions in emission order.
func DefaultGenreTables() []GenreTable {
	return []GenreTable{
		{Genre: "electronic", Seeds: []GenreSeed{
			{"Digital Pulse", "Circuit Breaker", 88},
			{"Neon Grid", "Matrix Sound", 86},
			{"Cyber Beat", "Future Bass", 84},
		}},
		{Genre: "lofi", Seeds: []GenreSeed{
			{"Chill Study", "Focus Beats", 82},
			{"Rainy Day", "Lofi Rain", 85},
			{"Coffee Shop", "Study Vibes", 83},
		}},
		{Genre: "ambient", Seeds: []GenreSeed{
			{"Peaceful Mind", "Meditation Sounds", 80},
			{"Floating Space", "Ambient Drone", 81},
			{"Calm Ocean", "Nature Sounds", 79},
		}},
		{Genre: "jazz", Seeds: []GenreSeed{
			{"Smooth Jazz", "Jazz Trio", 78},
			{"Late Night", "Jazz Club", 80},
			{"Bluesy Mood", "Jazz Collective", 77},
		}},
	}
}
