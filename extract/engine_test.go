package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatharvest/dialogue"
	"chatharvest/recipe"
)

const turnBasedPage = `
<html><body>
  <div class="conversation-container">
    <user-query>What is the capital of France?</user-query>
    <model-response>The capital of France is Paris.</model-response>
  </div>
  <div class="conversation-container">
    <user-query>And of Spain?</user-query>
    <model-response>That would be Madrid.</model-response>
  </div>
</body></html>`

// TestExtract_TurnBased verifies exchange containers yield ordered pairs
func TestExtract_TurnBased(t *testing.T) {
	doc := mustParse(t, turnBasedPage)

	turns, err := Extract(doc, Options{Recipe: recipe.Builtin("gemini")})
	require.NoError(t, err)
	require.Len(t, turns, 4)

	assert.Equal(t, dialogue.RoleUser, turns[0].Role)
	assert.Equal(t, "What is the capital of France?", turns[0].Text)
	assert.Equal(t, dialogue.RoleModel, turns[1].Role)
	assert.Equal(t, "The capital of France is Paris.", turns[1].Text)
	assert.Equal(t, dialogue.RoleUser, turns[2].Role)
	assert.Equal(t, dialogue.RoleModel, turns[3].Role)
}

// TestExtract_TurnBased_SingleSidedContainers covers layouts where each
// container holds only one side of the exchange
func TestExtract_TurnBased_SingleSidedContainers(t *testing.T) {
	doc := mustParse(t, `
<html><body>
  <ms-chat-turn><div class="user-prompt-container">Summarize this article for me.</div></ms-chat-turn>
  <ms-chat-turn><div class="model-response-container">Here is a short summary.</div></ms-chat-turn>
</body></html>`)

	turns, err := Extract(doc, Options{Recipe: recipe.Builtin("aistudio")})
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, dialogue.RoleUser, turns[0].Role)
	assert.Equal(t, dialogue.RoleModel, turns[1].Role)
}

// TestExtract_AttributeBased verifies roles come from the mapped attribute
// and unmapped values default to the model
func TestExtract_AttributeBased(t *testing.T) {
	doc := mustParse(t, `
<html><body>
  <div data-message-author-role="user">Explain goroutines briefly.</div>
  <div data-message-author-role="assistant">Goroutines are lightweight threads.</div>
  <div data-message-author-role="tool">search("goroutines")</div>
</body></html>`)

	turns, err := Extract(doc, Options{Recipe: recipe.Builtin("chatgpt")})
	require.NoError(t, err)
	require.Len(t, turns, 3)

	assert.Equal(t, dialogue.RoleUser, turns[0].Role)
	assert.Equal(t, dialogue.RoleModel, turns[1].Role)
	assert.Equal(t, dialogue.RoleModel, turns[2].Role, "unmapped role value should attribute to the model")
}

// TestExtract_AttributeBased_ContentSelector verifies the content sub-element
// is preferred over container text when it matches
func TestExtract_AttributeBased_ContentSelector(t *testing.T) {
	doc := mustParse(t, `
<html><body>
  <div data-role="user"><span class="meta">edited 2h ago</span><div class="body">the actual question</div></div>
  <div data-role="model">answer with no body wrapper</div>
</body></html>`)

	r := &recipe.Recipe{
		Name:            "t",
		Kind:            recipe.AttributeBased,
		Container:       "[data-role]",
		RoleAttribute:   "data-role",
		RoleMap:         map[string]dialogue.Role{"user": dialogue.RoleUser},
		ContentSelector: ".body",
	}

	turns, err := Extract(doc, Options{Recipe: r})
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "the actual question", turns[0].Text)
	assert.Equal(t, "answer with no body wrapper", turns[1].Text, "missing content selector should fall back to container text")
}

// TestExtract_ClassBased verifies user keywords are checked before model
// keywords
func TestExtract_ClassBased(t *testing.T) {
	doc := mustParse(t, `
<html><body>
  <div class="font-user-message">How do I sort a slice?</div>
  <div class="font-claude-message">Use the sort package.</div>
  <div class="plain-message">Unlabeled middle text.</div>
</body></html>`)

	turns, err := Extract(doc, Options{Recipe: recipe.Builtin("claude")})
	require.NoError(t, err)
	require.Len(t, turns, 3)

	assert.Equal(t, dialogue.RoleUser, turns[0].Role)
	assert.Equal(t, dialogue.RoleModel, turns[1].Role)
	assert.Equal(t, dialogue.RoleModel, turns[2].Role, "no keyword match should default to the model")
}

// TestExtract_ClassBased_UserKeywordWins verifies first-match precedence when
// a class matches keywords on both sides
func TestExtract_ClassBased_UserKeywordWins(t *testing.T) {
	doc := mustParse(t, `<html><body><div class="user-response">ambiguous class name here</div></body></html>`)

	r := &recipe.Recipe{
		Name:          "t",
		Kind:          recipe.ClassBased,
		Container:     "div",
		UserKeywords:  []string{"user"},
		ModelKeywords: []string{"response"},
	}

	turns, err := Extract(doc, Options{Recipe: r})
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, dialogue.RoleUser, turns[0].Role)
}

// TestExtract_UnknownKind verifies the only error path
func TestExtract_UnknownKind(t *testing.T) {
	doc := mustParse(t, `<html><body><div>text</div></body></html>`)

	_, err := Extract(doc, Options{Recipe: &recipe.Recipe{Name: "t", Kind: "mystery", Container: "div"}})
	assert.ErrorIs(t, err, recipe.ErrUnknownKind)
}

// TestExtract_CustomSelectors_PairMode verifies containers holding both
// sub-elements yield a user/model pair
func TestExtract_CustomSelectors_PairMode(t *testing.T) {
	doc := mustParse(t, `
<html><body>
  <div class="exchange">
    <div class="q">What time is it?</div>
    <div class="a">I have no clock access.</div>
  </div>
</body></html>`)

	turns, err := Extract(doc, Options{Selectors: &Selectors{
		Container: ".exchange", User: ".q", Model: ".a",
	}})
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, dialogue.RoleUser, turns[0].Role)
	assert.Equal(t, "What time is it?", turns[0].Text)
	assert.Equal(t, dialogue.RoleModel, turns[1].Role)
}

// TestExtract_CustomSelectors_RoleFromMatch verifies single-turn containers
// take their role from whichever sub-selector matched
func TestExtract_CustomSelectors_RoleFromMatch(t *testing.T) {
	doc := mustParse(t, `
<html><body>
  <div class="msg"><div class="q">a question from me</div></div>
  <div class="msg"><div class="a">an answer for you</div></div>
</body></html>`)

	turns, err := Extract(doc, Options{Selectors: &Selectors{
		Container: ".msg", User: ".q", Model: ".a",
	}})
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, dialogue.RoleUser, turns[0].Role)
	assert.Equal(t, dialogue.RoleModel, turns[1].Role)
}

// TestExtract_CustomSelectors_ShortTextKept verifies ad-hoc extraction has no
// length floor and short greetings survive end to end
func TestExtract_CustomSelectors_ShortTextKept(t *testing.T) {
	doc := mustParse(t, `
<html><body>
  <div class="user-message">Hi</div>
  <div class="model-response">Hello there</div>
</body></html>`)

	turns, err := Extract(doc, Options{Selectors: &Selectors{
		Container: ".user-message, .model-response",
	}})
	require.NoError(t, err)
	require.Len(t, turns, 2)

	assert.Equal(t, "User: Hi\n\nModel: Hello there", dialogue.FormatText(turns))
}

// TestExtract_TemplateFloorDropsFragments verifies template extraction skips
// boilerplate-length text
func TestExtract_TemplateFloorDropsFragments(t *testing.T) {
	doc := mustParse(t, `
<html><body>
  <div data-message-author-role="user">Edit</div>
  <div data-message-author-role="assistant">A real answer with substance.</div>
</body></html>`)

	turns, err := Extract(doc, Options{Recipe: recipe.Builtin("chatgpt")})
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, dialogue.RoleModel, turns[0].Role)
}

// TestExtract_SplitsSingleCollapsedTurn verifies the monologue splitter runs
// when extraction yields one turn containing a whole conversation
func TestExtract_SplitsSingleCollapsedTurn(t *testing.T) {
	doc := mustParse(t, `
<html><body>
  <div data-message-author-role="user"><p>first question</p><p>first answer</p><p>second question</p></div>
</body></html>`)

	turns, err := Extract(doc, Options{Recipe: recipe.Builtin("chatgpt")})
	require.NoError(t, err)
	require.Len(t, turns, 3)

	assert.Equal(t, dialogue.Turn{Role: dialogue.RoleUser, Text: "first question"}, turns[0])
	assert.Equal(t, dialogue.Turn{Role: dialogue.RoleModel, Text: "first answer"}, turns[1])
	assert.Equal(t, dialogue.Turn{Role: dialogue.RoleUser, Text: "second question"}, turns[2])
}

// TestExtract_NoSplitForMultipleTurns verifies the splitter never touches a
// multi-turn result
func TestExtract_NoSplitForMultipleTurns(t *testing.T) {
	doc := mustParse(t, `
<html><body>
  <div data-message-author-role="user"><p>part one</p><p>part two</p></div>
  <div data-message-author-role="assistant">short reply text</div>
</body></html>`)

	turns, err := Extract(doc, Options{Recipe: recipe.Builtin("chatgpt")})
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "part one\n\npart two", turns[0].Text)
}

// TestExtract_Deterministic verifies repeated extraction of the same page
// yields identical results
func TestExtract_Deterministic(t *testing.T) {
	doc := mustParse(t, turnBasedPage)
	opts := Options{Recipe: recipe.Builtin("gemini")}

	first, err := Extract(doc, opts)
	require.NoError(t, err)
	second, err := Extract(doc, opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// TestExtract_EmptyPage verifies a structureless page yields no turns and no
// error
func TestExtract_EmptyPage(t *testing.T) {
	doc := mustParse(t, `<html><body><article>Just a plain article with no chat markup at all.</article></body></html>`)

	turns, err := Extract(doc, Options{})
	require.NoError(t, err)
	assert.Empty(t, turns)
}
