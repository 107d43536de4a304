// Package vocab holds the fixed science vocabulary used to tag chunks with
// keywords and topics and to expand queries with related terms.
//
// The tables are process-wide and read-only. They are reachable only through
// the lookup functions in this package, which hand out copies.
package vocab

// Topic is a coarse subject label assigned to chunks and queries.
type Topic string

const (
	General   Topic = "general"
	Biology   Topic = "biology"
	Physics   Topic = "physics"
	Chemistry Topic = "chemistry"
)

// Concept maps a canonical concept name to its cluster of related terms.
type Concept struct {
	Key   string
	Topic Topic
	Terms []string
}

// concepts is ordered; keyword expansion walks it front to back.
var concepts = []Concept{
	// Biology
	{Key: "cell", Topic: Biology, Terms: []string{"nucleus", "membrane", "cytoplasm", "organelle", "mitochondria", "cell wall"}},
	{Key: "mitochondria", Topic: Biology, Terms: []string{"powerhouse", "atp", "cellular respiration", "energy", "organelle"}},
	{Key: "photosynthesis", Topic: Biology, Terms: []string{"chlorophyll", "light reaction", "glucose", "chloroplast", "carbon dioxide", "sunlight"}},
	{Key: "dna", Topic: Biology, Terms: []string{"gene", "chromosome", "heredity", "nucleotide", "genetic code"}},
	{Key: "respiration", Topic: Biology, Terms: []string{"oxygen", "glucose", "atp", "lungs", "breathing"}},
	{Key: "ecosystem", Topic: Biology, Terms: []string{"food chain", "food web", "producer", "consumer", "decomposer", "habitat"}},
	{Key: "evolution", Topic: Biology, Terms: []string{"natural selection", "adaptation", "species", "fossil", "variation"}},
	{Key: "digestion", Topic: Biology, Terms: []string{"stomach", "intestine", "enzyme", "nutrient", "saliva"}},
	{Key: "heart", Topic: Biology, Terms: []string{"blood", "circulation", "artery", "vein", "pulse"}},

	// Physics
	{Key: "motion", Topic: Physics, Terms: []string{"velocity", "speed", "acceleration", "displacement", "distance"}},
	{Key: "force", Topic: Physics, Terms: []string{"newton", "push", "pull", "friction", "gravity", "mass"}},
	{Key: "energy", Topic: Physics, Terms: []string{"kinetic energy", "potential energy", "work", "power", "joule"}},
	{Key: "electricity", Topic: Physics, Terms: []string{"current", "voltage", "resistance", "circuit", "ohm"}},
	{Key: "light", Topic: Physics, Terms: []string{"reflection", "refraction", "lens", "mirror", "wavelength"}},
	{Key: "wave", Topic: Physics, Terms: []string{"frequency", "amplitude", "wavelength", "sound", "vibration"}},
	{Key: "magnetism", Topic: Physics, Terms: []string{"magnet", "magnetic field", "pole", "compass"}},
	{Key: "gravity", Topic: Physics, Terms: []string{"mass", "weight", "free fall", "orbit"}},

	// Chemistry
	{Key: "atom", Topic: Chemistry, Terms: []string{"proton", "neutron", "electron", "nucleus", "atomic number"}},
	{Key: "molecule", Topic: Chemistry, Terms: []string{"compound", "bond", "element", "formula"}},
	{Key: "reaction", Topic: Chemistry, Terms: []string{"reactant", "product", "catalyst", "chemical change"}},
	{Key: "acid", Topic: Chemistry, Terms: []string{"base", "ph", "neutralization", "indicator", "alkali"}},
	{Key: "periodic table", Topic: Chemistry, Terms: []string{"element", "group", "period", "metal", "nonmetal"}},
	{Key: "mixture", Topic: Chemistry, Terms: []string{"solution", "solute", "solvent", "separation"}},
}

// topicOrder fixes which cluster wins when a passage matches several.
var topicOrder = []Topic{Biology, Physics, Chemistry}

// topicClusters are distinctive terms per topic. They are kept apart from the
// concept clusters because shared words like "energy" or "nucleus" would
// otherwise pull physics and chemistry passages into biology.
var topicClusters = map[Topic][]string{
	Biology: {
		"cell", "mitochondria", "photosynthesis", "chlorophyll", "chloroplast", "organism",
		"dna", "gene", "chromosome", "enzyme", "tissue", "organ", "bacteria", "virus",
		"ecosystem", "species", "evolution", "plant", "animal", "digestion", "respiration",
		"blood", "heart", "atp", "habitat", "biology",
	},
	Physics: {
		"velocity", "motion", "acceleration", "force", "friction", "gravity", "newton",
		"momentum", "kinetic", "potential energy", "voltage", "electric circuit", "resistance",
		"magnet", "wavelength", "frequency", "refraction", "reflection", "speed",
		"displacement", "inertia", "joule", "watt", "physics",
	},
	Chemistry: {
		"atom", "molecule", "compound", "element", "acid", "ph", "catalyst", "electron",
		"proton", "neutron", "periodic table", "chemical bond", "solvent", "oxidation",
		"valence", "isotope", "reactant", "chemistry",
	},
}
