package ladder

// matrix is a ragged grid of cells under construction; nil entries are
// unwired positions resolved during flattening.
type matrix [][]*Cell

func singleCell(cell *Cell) matrix {
	return matrix{{cell}}
}

func (m matrix) width() int {
	w := 0
	for _, row := range m {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// appendCell appends a cell to row 0 and pads every other row with a
// nil placeholder so the matrix stays rectangular.
func appendCell(m matrix, cell *Cell) matrix {
	if len(m) == 0 {
		m = matrix{{}}
	}
	m[0] = append(m[0], cell)
	for i := 1; i < len(m); i++ {
		for len(m[i]) < len(m[0]) {
			m[i] = append(m[i], nil)
		}
	}
	return m
}

// padRows equalizes row widths. Row 0 is the through-path and fills
// with horizontal bars; a row whose rightmost cell is nil or a
// non-horizontal branch connector pads with nil; any other row pads
// with horizontal bars. rowOffset is the index of m's first row within
// the combined matrix, so only the overall top row gets the
// through-path rule.
func padRows(m matrix, width, rowOffset int) matrix {
	for i := range m {
		for len(m[i]) < width {
			switch {
			case i+rowOffset == 0:
				m[i] = append(m[i], branchCell(symHBar))
			case len(m[i]) == 0 || m[i][len(m[i])-1] == nil ||
				(isBranch(m[i][len(m[i])-1]) && !isHBar(m[i][len(m[i])-1])):
				m[i] = append(m[i], nil)
			default:
				m[i] = append(m[i], branchCell(symHBar))
			}
		}
	}
	return m
}

// mergeBelow places lower under upper, equalizing widths first
func mergeBelow(upper, lower matrix) matrix {
	width := upper.width()
	if w := lower.width(); w > width {
		width = w
	}
	upper = padRows(upper, width, 0)
	lower = padRows(lower, width, len(upper))
	return append(upper, lower...)
}

// closeBranch adds the left-side closing connectors of a parallel
// block. The top row's corner is implied by the junction column; each
// lower row ends in a vertical bar (where its last cell is empty) or a
// vertical T, with a connector on the bottom row becoming the corner.
func closeBranch(m matrix) matrix {
	if len(m) < 2 {
		return m
	}

	// The greatest row index whose last cell is populated
	lastRow := 0
	for i, row := range m {
		if len(row) > 0 && row[len(row)-1] != nil {
			lastRow = i
		}
	}

	for i := 1; i <= lastRow; i++ {
		row := m[i]
		if len(row) == 0 {
			m[i] = append(row, branchCell(symVBarL))
			continue
		}
		last := row[len(row)-1]
		switch {
		case last == nil:
			row[len(row)-1] = branchCell(symVBarL)
		case isHBar(last):
			row[len(row)-1] = branchCell(symBranchTT)
		case isBranch(last):
			row[len(row)-1] = branchCell(symBranchTT)
		default:
			// A real instruction keeps its place; the connector
			// extends the row by one column.
			m[i] = append(row, branchCell(symBranchTT))
		}
	}

	// Bottom of the block takes the corner
	row := m[lastRow]
	if len(row) > 0 && isBranch(row[len(row)-1]) {
		row[len(row)-1] = branchCell(symBranchL)
	}

	// Rows below the block (already-closed deeper branches) get a
	// vertical bar in place of an empty last cell
	for i := lastRow + 1; i < len(m); i++ {
		if len(m[i]) > 0 && m[i][len(m[i])-1] == nil {
			m[i][len(m[i])-1] = branchCell(symVBarL)
		}
	}

	return m
}

// mergeRight places right after left for ANDSTR. A multi-row right
// block is opened with a column of right-side branch connectors.
func mergeRight(left, right matrix) matrix {
	if len(right) > 1 {
		for i := range right {
			var connector *Cell
			switch {
			case i == 0:
				connector = branchCell(symBranchTR)
			case i == len(right)-1:
				connector = branchCell(symBranchR)
			default:
				connector = branchCell(symBranchTTR)
			}
			right[i] = append([]*Cell{connector}, right[i]...)
		}
	}

	left = padRows(left, left.width(), 0)
	right = padRows(right, right.width(), 0)

	// Equalize heights with nil rows
	for len(left) < len(right) {
		left = append(left, make([]*Cell, left.width()))
	}
	for len(right) < len(left) {
		right = append(right, make([]*Cell, right.width()))
	}

	combined := make(matrix, len(left))
	for i := range left {
		combined[i] = append(left[i], right[i]...)
	}
	return combined
}
