package vocab

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on",
		"at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its",
		"this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further",
		"than", "so", "such", "into", "about", "between", "through", "during", "before", "after",
		"above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don",
		"should", "now", "what", "which", "who", "whom", "why", "how", "when", "where", "does",
		"do", "did", "has", "have", "had", "not", "no", "yes", "you", "your", "they", "their",
		"them", "there", "here", "also", "each", "other", "some", "more", "most", "many", "much",
		"only", "all", "any", "both", "our", "we", "us", "his", "her", "she", "he", "him",
		"would", "could", "may", "might", "must", "shall", "explain", "tell", "describe",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// IsStopword reports whether the lowercase word carries no retrieval signal.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}
