package model

// NavigationItem is one entry of the respondent's ordered section list.
// Previous and Next carry the display-key paths of the neighbouring entries;
// endpoints have nil.
type NavigationItem struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Previous *string `json:"previous"`
	Next     *string `json:"next"`
}

// NavResponse is the view returned by navigate and saveAnswer: the current
// step, the answers of the addressed section in display-key order, the full
// navigation list and the entry matching the addressed section.
type NavResponse struct {
	Step           *Step            `json:"step"`
	CurrentNavItem *NavigationItem  `json:"currentNavItem"`
	Answers        []*Answer        `json:"answers"`
	NavItems       []NavigationItem `json:"navItems"`
}
