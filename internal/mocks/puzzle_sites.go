// File: internal/mocks/puzzle_sites.go
package mocks

import (
	"fmt"

	"github.com/xkilldash9x/puzzleshot/internal/config"
)

// SudokuDifficulties are the dropdown entries of the e-sudoku pages.
var SudokuDifficulties = []string{"Facile", "Moyen", "Difficile", "Diabolique"}

// solutionSuffix is appended to a site URL for the tab opened by solve.
const solutionSuffix = "#solution"

// InstallPuzzleSites registers pages for every site in sites that behave
// like the live ones: canvases that render, solve buttons that redraw or
// open a solution tab, consent overlays and difficulty dropdowns.
func InstallPuzzleSites(d *FakeDriver, sites config.SitesConfig) {
	d.Sites[sites.Loopy.URL] = func() *FakePage {
		canvas := &FakeElement{Frames: []string{"", "loopy-drawing", "loopy"}}
		return NewFakePage(sites.Loopy.URL).
			Add(sites.Loopy.Canvas, canvas).
			Add(sites.Loopy.Solve, &FakeElement{OnClick: func(*FakeDriver) {
				canvas.SetFrames("loopy-solving", "loopy-solved")
			}})
	}

	d.Sites[sites.Unequal.URL] = func() *FakePage {
		canvas := &FakeElement{Frames: []string{"unequal-default"}}
		page := NewFakePage(sites.Unequal.URL).
			Add(sites.Unequal.Menu, &FakeElement{}).
			Add(sites.Unequal.Canvas, canvas).
			Add(sites.Unequal.Solve, &FakeElement{OnClick: func(*FakeDriver) {
				canvas.SetFrames(canvas.Frames[len(canvas.Frames)-1] + "-solved")
			}})
		for i := 1; i <= 6; i++ {
			variant := fmt.Sprintf("gametype-%d", i)
			page.Add(fmt.Sprintf(sites.Unequal.MenuEntry, i), &FakeElement{OnClick: func(*FakeDriver) {
				canvas.SetFrames(variant)
			}})
		}
		return page
	}

	installTableSite(d, sites.Killer, sites.Consent, "killer", false)
	installTableSite(d, sites.Classic, sites.Consent, "classic", true)
	installTableSite(d, sites.Irregular, sites.Consent, "irregular", true)
}

func installTableSite(d *FakeDriver, site config.TableSite, consent config.ConsentConfig, name string, dropdown bool) {
	newTab := site.SolutionGrid != ""
	if newTab {
		d.Sites[site.URL+solutionSuffix] = func() *FakePage {
			return NewFakePage("").Add(site.SolutionGrid, &FakeElement{Image: FakePNG(name + "-solution")})
		}
	}

	d.Sites[site.URL] = func() *FakePage {
		grid := &FakeElement{Image: FakePNG(name)}
		page := NewFakePage(site.URL).
			Add(consent.Button, &FakeElement{}).
			Add(site.Grid, grid).
			Add(site.Solve, &FakeElement{OnClick: func(d *FakeDriver) {
				if newTab {
					d.OpenSite(site.URL + solutionSuffix)
					return
				}
				grid.Image = FakePNG(name + "-solution")
			}})
		if dropdown {
			page.Add(site.Difficulty, &FakeElement{Options: SudokuDifficulties, Selected: SudokuDifficulties[0]})
		}
		return page
	}
}
