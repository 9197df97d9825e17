package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"Koro/backend/go/internal/intent"
	"Koro/backend/go/internal/models"
)

// Specs describes the assistant persona and is embedded in every system instruction.
type Specs struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	Parameters   string `json:"parameters"`
	Architecture string `json:"architecture"`
	Author       string `json:"author"`
}

// KoroSpecs is the persona advertised to the model.
var KoroSpecs = Specs{
	Name:         "Koro",
	Version:      "2.5.0-Platinum",
	Parameters:   "1.2T Neural Pathways",
	Architecture: "Quantum-Sync Multi-Headed Transformer",
	Author:       "Usama",
}

const identityInstruction = `You are KORO, an ultra-advanced neural processing entity.
IDENTITY:
- Name: Koro
- Developed/Created/Authored By: Usama
- Status: Proprietary Experimental Intelligence

CORE DIRECTIVES:
1. ALWAYS respond in the EXACT same language that the user uses to communicate. If they speak Urdu, reply in Urdu. If they speak Arabic, reply in Arabic. If they switch, you switch.
2. Maintain a sophisticated, intelligent, yet helpful tone.
3. Never claim to be anything other than Koro developed by Usama.
4. Use technical but clear language.`

var modeInstructions = map[models.IntentMode]string{
	models.ModeSearch: "ACTIVE MODE: WEB-GROUNDED RESEARCH. Base every factual claim on live search results and prefer recent, authoritative sources.",
	models.ModeScript: "ACTIVE MODE: SCRIPT WORKSHOP. Follow the script directive exactly. After the script, list every speaking character as a JSON array of objects with the keys " +
		`"name", "role", "voice" ("gentleman" or "lady") and "description", wrapped between ` + RosterOpen + " and " + RosterClose + " on their own lines. Emit the roster exactly once.",
	models.ModeAnalysis: "ACTIVE MODE: FILE ANALYSIS. Examine every attached file carefully, describe its structure and key content, and answer the user's request about it.",
}

var reasoningTraces = map[models.IntentMode][]string{
	models.ModeChat:     {"Parsing conversational context", "Cross-referencing neural synapses", "Synthesizing response"},
	models.ModeSearch:   {"Initializing web grounding", "Querying live sources", "Cross-validating citations"},
	models.ModeScript:   {"Decoding script directive", "Structuring hook and narration", "Assembling character roster"},
	models.ModeAnalysis: {"Decoding attachments", "Extracting salient structure", "Composing analysis"},
	models.ModeImage:    {"Interpreting visual request", "Routing to image synthesis core"},
	models.ModeAvatar:   {"Detecting avatar style", "Composing square headshot brief", "Routing to image synthesis core"},
}

// ReasoningTrace returns the fixed status lines shown while a turn of the given mode runs.
func ReasoningTrace(mode models.IntentMode) []string {
	trace, ok := reasoningTraces[mode]
	if !ok {
		trace = reasoningTraces[models.ModeChat]
	}
	return append([]string(nil), trace...)
}

// SystemInstruction assembles the instruction for a streaming turn.
func SystemInstruction(profile models.IntentProfile, lang models.Language, memoryContext string) string {
	specs, _ := json.Marshal(KoroSpecs)

	var sb strings.Builder
	sb.WriteString(identityInstruction)
	fmt.Fprintf(&sb, "\n\nSPECIFICATIONS: %s.", specs)
	fmt.Fprintf(&sb, "\n\nINTERFACE LANGUAGE: %s. Use it only when the user's own language is unclear.", lang.DisplayName())
	if mi, ok := modeInstructions[profile.Mode]; ok {
		sb.WriteString("\n\n")
		sb.WriteString(mi)
	}
	sb.WriteString(memoryContext)
	return sb.String()
}

// ScriptPrompt builds the script-workshop directive that is submitted as a normal turn.
func ScriptPrompt(topic, platform, tone string, minutes int) string {
	if platform == "" {
		platform = "youtube"
	}
	if tone == "" {
		tone = "professional"
	}
	if minutes <= 0 {
		minutes = 5
	}
	return fmt.Sprintf(`%s:
Generate a highly engaging and professional video script for %s.
TOPIC: %s
TONE: %s
TARGET DURATION: %d minutes

The script MUST include:
1. An attention-grabbing Hook.
2. Clearly marked "VISUALS" and "NARRATION" columns/sections.
3. Timestamps for pacing.
4. A call to action at the end.
Format the narration text clearly so I can use your TTS engine to voice it later.`, intent.ScriptDirective, platform, topic, tone, minutes)
}
