/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package json0

// Side decides which of two concurrent edits wins a tie.
type Side int

// Below are the sides of a transformation. The left side wins ties.
const (
	Left Side = iota
	Right
)

// Transform rewrites op so that it applies after other, where both ops were
// made against the same document version.
func Transform(op, other Op, side Side) Op {
	if len(op) == 0 || len(other) == 0 {
		return op
	}
	if side == Left {
		left, _ := TransformX(op, other)
		return left
	}
	_, right := TransformX(other, op)
	return right
}

// TransformX transforms two concurrent ops against each other and returns
// left' and right' such that applying left then right' equals applying right
// then left'.
func TransformX(left, right Op) (Op, Op) {
	var newRight Op
	for _, rc := range right {
		rightC := &rc
		var newLeft Op

		for k := 0; k < len(left); {
			var next Op
			newLeft = transformComponent(newLeft, left[k], *rightC, Left)
			next = transformComponent(next, *rightC, left[k], Right)
			k++

			if len(next) == 1 {
				rightC = &next[0]
				continue
			}
			if len(next) == 0 {
				for _, c := range left[k:] {
					newLeft = appendComponent(newLeft, c)
				}
				rightC = nil
				break
			}

			l, r := TransformX(left[k:], next)
			for _, c := range l {
				newLeft = appendComponent(newLeft, c)
			}
			for _, c := range r {
				newRight = appendComponent(newRight, c)
			}
			rightC = nil
			break
		}

		if rightC != nil {
			newRight = appendComponent(newRight, *rightC)
		}
		left = newLeft
	}
	return left, newRight
}

// editLength is the length of the path the component edits. Number edits
// address the value itself rather than a slot in its parent.
func editLength(c Component) int {
	if c.Has(FieldNA) {
		return len(c.P) + 1
	}
	return len(c.P)
}

// commonLength returns the length of the parent path of a when it is a
// prefix of b's path. It returns -1 when a edits the root and false when the
// paths diverge.
func commonLength(a, b Component) (int, bool) {
	alen := editLength(a)
	blen := editLength(b)
	if alen == 0 {
		return -1, true
	}
	if blen == 0 {
		return 0, false
	}

	alen--
	blen--
	for i := 0; i < alen; i++ {
		if i >= blen || !sameElem(a.P.at(i), b.P.at(i)) {
			return 0, false
		}
	}
	return alen, true
}

func (p Path) at(i int) any {
	if i < 0 || i >= len(p) {
		return nil
	}
	return p[i]
}

func sameElem(a, b any) bool {
	return a == b
}

// lessOrEqual orders two path elements of the same kind. Elements of
// different kinds, or missing ones, are not ordered.
func lessOrEqual(a, b any) bool {
	switch x := a.(type) {
	case int:
		y, ok := b.(int)
		return ok && x <= y
	case string:
		y, ok := b.(string)
		return ok && x <= y
	}
	return false
}

func less(a, b any) bool {
	return lessOrEqual(a, b) && !sameElem(a, b)
}

func shiftIndex(p Path, i int, delta int) {
	if idx, ok := p.at(i).(int); ok {
		p[i] = idx + delta
	}
}

// transformComponent transforms c against otherC and appends the result to
// dest. It may append nothing when c no longer has any effect.
func transformComponent(dest Op, c, otherC Component, side Side) Op {
	c = c.clone()

	common, hasCommon := commonLength(otherC, c)
	common2, hasCommon2 := commonLength(c, otherC)
	cLen := editLength(c)
	otherLen := editLength(otherC)

	// Keep deleted values in sync with edits made below them.
	if hasCommon2 && otherLen > cLen && sameElem(c.P.at(common2), otherC.P.at(common2)) {
		oc := otherC.clone()
		oc.P = oc.P[len(c.P):]
		if c.Has(FieldLD) {
			if v, err := applyComponent(Clone(c.LD), oc); err == nil {
				c.LD = v
			}
		} else if c.Has(FieldOD) {
			if v, err := applyComponent(Clone(c.OD), oc); err == nil {
				c.OD = v
			}
		}
	}

	if !hasCommon {
		return appendComponent(dest, c)
	}

	commonOperand := cLen == otherLen
	cKey := c.P.at(common)
	otherKey := otherC.P.at(common)

	switch {
	case otherC.Has(FieldNA):
		// Number edits never move or remove anything.
	case otherC.Has(FieldLI) && otherC.Has(FieldLD):
		if sameElem(otherKey, cKey) {
			if !commonOperand {
				return dest
			}
			if c.Has(FieldLD) {
				if c.Has(FieldLI) && side == Left {
					c.LD = Clone(otherC.LI)
				} else {
					return dest
				}
			}
		}
	case otherC.Has(FieldLI):
		if c.Has(FieldLI) && !c.Has(FieldLD) && commonOperand && sameElem(cKey, otherKey) {
			if side == Right {
				shiftIndex(c.P, common, 1)
			}
		} else if lessOrEqual(otherKey, cKey) {
			shiftIndex(c.P, common, 1)
		}
	case otherC.Has(FieldLD):
		if less(otherKey, cKey) {
			shiftIndex(c.P, common, -1)
		} else if sameElem(otherKey, cKey) {
			if otherLen < cLen {
				return dest
			}
			if c.Has(FieldLD) {
				if !c.Has(FieldLI) {
					return dest
				}
				c.LD = nil
				c.unset(FieldLD)
			}
		}
	case otherC.Has(FieldOI) && otherC.Has(FieldOD):
		if sameElem(cKey, otherKey) {
			if !c.Has(FieldOI) || !commonOperand {
				return dest
			}
			if side == Right {
				return dest
			}
			c.OD = Clone(otherC.OI)
			c.set(FieldOD)
		}
	case otherC.Has(FieldOI):
		if c.Has(FieldOI) && sameElem(cKey, otherKey) {
			if side == Right {
				return dest
			}
			dest = appendComponent(dest, ObjectDelete(append(Path{}, c.P...), Clone(otherC.OI)))
		}
	case otherC.Has(FieldOD):
		if sameElem(cKey, otherKey) {
			if !commonOperand || !c.Has(FieldOI) {
				return dest
			}
			c.OD = nil
			c.unset(FieldOD)
		}
	}

	return appendComponent(dest, c)
}

// appendComponent appends c to dest, merging it into the last component
// when both add to the same number.
func appendComponent(dest Op, c Component) Op {
	c = c.clone()
	if n := len(dest); n > 0 {
		last := &dest[n-1]
		if last.Has(FieldNA) && c.Has(FieldNA) && samePath(last.P, c.P) {
			last.NA += c.NA
			return dest
		}
	}
	return append(dest, c)
}

func samePath(a, b Path) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameElem(a[i], b[i]) {
			return false
		}
	}
	return true
}
