package models

type LoadResult struct {
	Size        int  `json:"size"`
	Ready       bool `json:"ready"`
	TimeElapsed int  `json:"timeElapsedMs"`
}

type WordCheck struct {
	Word  string `json:"word"`
	Known bool   `json:"known"`
}

type ScanResult struct {
	URL          string   `json:"url"`
	TotalWords   int      `json:"totalWords"`
	KnownWords   int      `json:"knownWords"`
	UnknownWords []string `json:"unknownWords"`
}
