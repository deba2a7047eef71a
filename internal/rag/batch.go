package rag

// batchItem is a validated text waiting to be embedded.
type batchItem struct {
	index  int
	text   string
	tokens int
}

// planBatches groups items in order so that no batch exceeds maxTokens tokens
// or maxItems items. A batch is flushed before an item would overflow it.
func planBatches(items []batchItem, maxTokens, maxItems int) [][]batchItem {
	if len(items) == 0 {
		return nil
	}

	var (
		batches [][]batchItem
		current []batchItem
		tokens  int
	)
	for _, it := range items {
		if len(current) > 0 && (tokens+it.tokens > maxTokens || len(current)+1 > maxItems) {
			batches = append(batches, current)
			current = nil
			tokens = 0
		}
		current = append(current, it)
		tokens += it.tokens
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
