package windows

import "github.com/replit/desktop/internal/native"

// boundsLeeway is how far past a work area's bottom/right edge a stored
// rectangle may reach and still count as visible. Covers windows that were
// dragged slightly off screen.
const boundsLeeway = 100

// IsInBounds reports whether some display's work area, expanded by the leeway
// margin on the bottom and right, contains the rectangle's bottom-right
// corner. Stored bounds that fail this check belong to a display layout that
// no longer exists.
func IsInBounds(r native.Rect, displays []native.Display) bool {
	cornerX := r.X + r.Width
	cornerY := r.Y + r.Height

	for _, d := range displays {
		wa := d.WorkArea
		if cornerX >= wa.X && cornerX <= wa.X+wa.Width+boundsLeeway &&
			cornerY >= wa.Y && cornerY <= wa.Y+wa.Height+boundsLeeway {
			return true
		}
	}
	return false
}

// displayNearest returns the display containing the point, or failing that
// the one whose work area is closest to it. Falls back to a zero display when
// none are connected.
func displayNearest(displays []native.Display, p native.Point) native.Display {
	if len(displays) == 0 {
		return native.Display{}
	}

	best := displays[0]
	bestDist := -1
	for _, d := range displays {
		dist := distanceToRect(p, d.WorkArea)
		if dist == 0 {
			return d
		}
		if bestDist < 0 || dist < bestDist {
			best = d
			bestDist = dist
		}
	}
	return best
}

// distanceToRect is the squared distance from a point to the nearest point of
// the rectangle; zero when the point is inside.
func distanceToRect(p native.Point, r native.Rect) int {
	dx := 0
	if p.X < r.X {
		dx = r.X - p.X
	} else if p.X > r.X+r.Width {
		dx = p.X - (r.X + r.Width)
	}

	dy := 0
	if p.Y < r.Y {
		dy = r.Y - p.Y
	} else if p.Y > r.Y+r.Height {
		dy = p.Y - (r.Y + r.Height)
	}

	return dx*dx + dy*dy
}
