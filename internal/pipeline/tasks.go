package pipeline

import (
	"github.com/google/uuid"
)

// Role tags the summarization angle a task's provider call should take,
// assigned by chunk position.
type Role string

const (
	RoleIntroduction Role = "introduction"
	RoleContent      Role = "content"
	RoleConclusion   Role = "conclusion"
	// RoleWhole marks a single-chunk document; the one task acts as both
	// introduction and conclusion.
	RoleWhole Role = "introduction_conclusion"
)

var roleInstructions = map[Role]string{
	RoleIntroduction: "You are an expert at identifying main topics and introductions. " +
		"Summarize the main topic, purpose, and key themes introduced in this text. " +
		"Focus on what this document is about and its primary objectives.",
	RoleContent: "You are an expert at extracting key information and main points. " +
		"Summarize the important details, methodologies, concepts, and significant information in this text. " +
		"Focus on the core content and valuable insights.",
	RoleConclusion: "You are an expert at extracting conclusions and key outcomes. " +
		"Summarize the conclusions, results, findings, and final takeaways from this text. " +
		"Focus on what was achieved or concluded.",
	RoleWhole: "You are an expert summarizer. Summarize this document in one pass: " +
		"state its main topic and purpose, the key points, and the conclusions or outcomes. " +
		"Produce a single coherent summary.",
}

const synthesisInstruction = "You are an expert at creating coherent, well-structured summaries. " +
	"You have been given multiple section summaries from a document. " +
	"Combine them into one unified summary that flows naturally: " +
	"maintain logical structure, remove redundancy across sections, and preserve the essential details from each section."

// Task pairs one chunk with its role and instruction. Created when chunks are
// partitioned; consumed exactly once by the runner.
type Task struct {
	ID          string
	Chunk       Chunk
	Role        Role
	Instruction string
}

// BuildTasks assigns roles by position: first chunk introduction, last chunk
// conclusion, everything between content. A single-chunk document gets one
// combined task.
func BuildTasks(chunks []Chunk) []Task {
	tasks := make([]Task, len(chunks))
	for i, chunk := range chunks {
		role := RoleContent
		switch {
		case len(chunks) == 1:
			role = RoleWhole
		case i == 0:
			role = RoleIntroduction
		case i == len(chunks)-1:
			role = RoleConclusion
		}
		tasks[i] = Task{
			ID:          uuid.NewString(),
			Chunk:       chunk,
			Role:        role,
			Instruction: roleInstructions[role],
		}
	}
	return tasks
}
