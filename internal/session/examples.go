package session

// Examples are canned prompts offered by the REPL and the HTTP API. The first
// two are quick actions; the rest are example questions.
var Examples = []string{
	"Show me my recent expenses",
	"Help me add a new expense",
	"What are my expenses for this month?",
	"Show me my spending by category",
	"What's my total spending this week?",
	"Add a $50 grocery expense",
	"Calculate my average daily spending",
}
