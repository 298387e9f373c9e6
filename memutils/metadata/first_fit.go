package metadata

// FindFit walks the list in address order and returns the first free block whose payload can hold
// size bytes. It returns NoBlock and false when no such block exists. The list is not modified.
func (l *BlockList) FindFit(size int) (BlockHandle, bool) {
	for block := l.head; block != NoBlock; block = l.Next(block) {
		h := l.header(block)
		if h.isFree() && int(h.size) >= size {
			return block, true
		}
	}

	return NoBlock, false
}
