package models

// Case is a self-contained mystery scenario. It is read-only once loaded.
type Case struct {
	ID             string         `yaml:"id" json:"id"`
	Title          string         `yaml:"title" json:"title"`
	Theme          string         `yaml:"theme" json:"theme"`
	Narrative      string         `yaml:"narrative" json:"narrative"`
	Summary        string         `yaml:"summary" json:"summary"`
	Victim         string         `yaml:"victim" json:"victim"`
	Cause          string         `yaml:"cause" json:"cause"`
	Location       string         `yaml:"location" json:"location"`
	Time           string         `yaml:"time" json:"time"`
	Suspects       []Suspect      `yaml:"suspects" json:"suspects"`
	Evidence       EvidenceBundle `yaml:"evidence" json:"evidence"`
	KillerID       string         `yaml:"killerId" json:"killerId"`
	MotiveText     string         `yaml:"motive" json:"motive"`
	MotiveKeywords []string       `yaml:"motiveKeywords" json:"motiveKeywords"`
	Solution       string         `yaml:"solution,omitempty" json:"solution,omitempty"`
	Image          string         `yaml:"image,omitempty" json:"image,omitempty"`
}

// Suspect returns the suspect with the given ID.
func (c Case) Suspect(id string) (Suspect, bool) {
	for _, s := range c.Suspects {
		if s.ID == id {
			return s, true
		}
	}
	return Suspect{}, false
}

// Suspect is a person of interest in a case.
type Suspect struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	Persona      string   `yaml:"persona" json:"persona"`
	Alibi        string   `yaml:"alibi" json:"alibi"`
	Motive       string   `yaml:"motive" json:"motive"`
	Relationship string   `yaml:"relationship" json:"relationship"`
	Evidence     string   `yaml:"evidence" json:"evidence"`
	Secret       string   `yaml:"secret,omitempty" json:"secret,omitempty"`
	GenericLines []string `yaml:"genericLines,omitempty" json:"genericLines,omitempty"`
}

// EvidenceBundle partitions the clues of a case by how they are discovered.
type EvidenceBundle struct {
	// Initial is known when the case opens.
	Initial []string `yaml:"initial" json:"initial"`
	// BodySearch is revealed by searching the body.
	BodySearch []string `yaml:"bodySearch" json:"bodySearch"`
	// RoomSearch is revealed by searching the room.
	RoomSearch []string `yaml:"roomSearch" json:"roomSearch"`
	// LabClue is revealed once per case by the forensic lab.
	LabClue string `yaml:"labClue" json:"labClue"`
	// SmokingGun is only shown in the resolution narrative.
	SmokingGun string `yaml:"smokingGun" json:"smokingGun"`
}

// DialogueLine is one utterance in an interrogation.
type DialogueLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Speakers of a DialogueLine.
const (
	SpeakerDetective = "detective"
	SpeakerSuspect   = "suspect"
)
