package interference

// spanishLexicon holds common Spanish function words and high-frequency
// verbs, nouns and adjectives that surface when a Spanish speaker code-switches
// while practising English.
var spanishLexicon = wordSet(
	// pronouns
	"yo", "tú", "tu", "él", "ella", "nosotros", "ellos", "ellas", "usted", "ustedes",
	"mi", "mis", "mí", "me", "te", "se", "nos", "les",
	// common verbs
	"es", "soy", "eres", "somos", "son", "estar", "estoy", "estás", "estamos", "están",
	"tengo", "tienes", "tiene", "tenemos", "tienen", "tener",
	"quiero", "quieres", "quiere", "queremos", "quieren",
	"puedo", "puedes", "puede", "podemos", "pueden",
	"voy", "vas", "va", "vamos", "van", "ir",
	"hacer", "hago", "haces", "hace", "hacemos", "hacen",
	"saber", "sé", "sabes", "sabe", "sabemos", "saben",
	"decir", "digo", "dices", "dice", "decimos", "dicen",
	"ver", "veo", "ves", "vemos", "ven",
	"creo", "crees", "cree", "creemos", "creen", "creer",
	"pienso", "piensas", "piensa", "pensamos", "piensan", "pensar",
	"hablar", "hablo", "hablas", "habla", "hablamos", "hablan",
	"necesito", "necesitas", "necesita", "necesitamos", "necesitan",
	"gracias", "por", "favor",
	// articles and connectors
	"el", "la", "los", "las", "un", "una", "unos", "unas",
	"de", "del", "al", "en", "con", "sin", "para", "sobre",
	"que", "qué", "porque", "pero", "sino", "aunque", "cuando",
	"como", "cómo", "donde", "dónde", "quien", "quién",
	"si", "sí", "no", "ya", "también", "tampoco", "muy", "más",
	"este", "esta", "estos", "estas", "ese", "esa", "esos", "esas",
	"todo", "todos", "toda", "todas", "algo", "nada", "alguien", "nadie",
	// adjectives
	"bueno", "buena", "malo", "mala", "grande", "pequeño", "pequeña",
	"mucho", "mucha", "muchos", "muchas", "poco", "poca", "pocos", "pocas",
	"nuevo", "nueva", "viejo", "vieja",
	// nouns
	"día", "tiempo", "vez", "cosa", "parte", "lugar", "manera",
	"persona", "año", "vida", "mundo", "caso", "ejemplo",
	"trabajo", "casa", "gente",
	// discourse markers
	"igual", "entonces", "pues", "claro", "obvio",
)

// ambiguousWords are valid spellings in both languages. They never count as
// interference even when they appear in the lexicon.
var ambiguousWords = wordSet(
	"a", "me", "no", "si", "el", "en", "de", "se", "un", "al",
	"social", "animal", "general", "natural", "normal", "personal",
	"total", "final", "local", "real", "formal", "digital",
	"hotel", "hospital", "capital", "central", "cultural",
)

// suggestions maps lexicon words to the English phrasing a learner should
// reach for instead.
var suggestions = map[string]string{
	"yo":       `"I"`,
	"tú":       `"you"`,
	"es":       `"it is" or "is"`,
	"soy":      `"I am"`,
	"tengo":    `"I have"`,
	"quiero":   `"I want"`,
	"puedo":    `"I can"`,
	"voy":      `"I'm going"`,
	"creo":     `"I think"`,
	"pienso":   `"I think"`,
	"porque":   `"because"`,
	"pero":     `"but"`,
	"cuando":   `"when"`,
	"que":      `"that"`,
	"como":     `"like" or "how"`,
	"también":  `"also"`,
	"muy":      `"very"`,
	"más":      `"more"`,
	"todo":     `"everything" or "all"`,
	"algo":     `"something"`,
	"pues":     `"well..."`,
	"bueno":    `"okay" or "well"`,
	"igual":    `"same" or "still"`,
	"entonces": `"so" or "then"`,
	"claro":    `"of course" or "sure"`,
	"necesito": `"I need"`,
	"hablar":   `"to speak" or "talking"`,
	"trabajo":  `"work" or "job"`,
	"tiempo":   `"time" or "weather"`,
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
