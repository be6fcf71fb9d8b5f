package incoming

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	contracts "kenes-socket-go/pkg/contracts/socket"
	"kenes-socket-go/pkg/types"
)

func TestOperatorGreet(t *testing.T) {
	f := newFixture(t)
	f.call.On("OnCallAgentGreet", types.Greeting{
		CallAgent: types.CallAgent{
			Name:               "Dana",
			FullName:           "Dana Serikova",
			PhotoURL:           "https://cdn/dana.jpg",
			AudioStreamEnabled: true,
		},
		Text: "Hello, how can I help?",
	}).Once()

	err := f.send(t, contracts.EventOperatorGreet, `{"name":"Dana","full_name":"Dana Serikova","photo":"https://cdn/dana.jpg","text":"Hello, how can I help?","audio_stream_enabled":1,"video_stream_enabled":"false"}`)
	require.NoError(t, err)
}

func TestUserQueue(t *testing.T) {
	f := newFixture(t)
	f.call.On("OnPendingUsersQueueCount", "", 4).Once()

	require.NoError(t, f.send(t, contracts.EventUserQueue, `{"count":"4"}`))
	assert.ErrorIs(t, f.send(t, contracts.EventUserQueue, `{}`), ErrMalformedFrame)
}

func TestFeedback(t *testing.T) {
	f := newFixture(t)
	f.call.On("OnCallFeedback", "Rate the dialog", []types.RateButton{
		{Title: "Good", Payload: "5"},
		{Title: "Bad", Payload: "1"},
	}).Once()

	require.NoError(t, f.send(t, contracts.EventFeedback, `{"text":"Rate the dialog","chat_id":77,"buttons":[{"title":"Good","payload":5},{"title":"Bad","payload":"1"}]}`))
	require.NoError(t, f.send(t, contracts.EventFeedback, `{"text":"no buttons"}`))
}

func TestFormInit(t *testing.T) {
	f := newFixture(t)
	f.form.On("OnFormInit", types.Form{
		ID:         9,
		Title:      "Complaint",
		Prompt:     "Describe the problem",
		IsFlexible: true,
		Fields: []types.Field{
			{ID: 1, FormID: 9, Title: "Photo", Type: types.FieldImage, Level: 2},
			{ID: 2, FormID: 9, Title: "Comment", Type: types.FieldText, DefaultValue: "-", Level: types.NoLevel},
		},
	}).Once()

	payload := `{
		"form": {"id": 9, "title": "Complaint", "prompt": "Describe the problem", "is_flex": 1},
		"form_fields": [
			{"id": 1, "form_id": 9, "title": "Photo", "type": "image", "level": 2},
			{"id": 2, "title": "Comment", "default": "-"}
		]
	}`
	require.NoError(t, f.send(t, contracts.EventFormInit, payload))
	assert.ErrorIs(t, f.send(t, contracts.EventFormInit, `{"form":{"title":"no id"}}`), ErrMalformedFrame)
}

func TestFormFinal(t *testing.T) {
	f := newFixture(t)
	f.form.On("OnFormFinal", types.FormResult{TrackID: "TR-1", TaskID: 55, Message: "Accepted", Success: true}).Once()

	require.NoError(t, f.send(t, contracts.EventFormFinal, `{"task":{"id":55,"track_id":"TR-1"},"message":"Accepted","success":true}`))
}

func TestCategoryList(t *testing.T) {
	f := newFixture(t)

	var got []types.Category
	f.chatBot.On("OnCategories", mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(0).([]types.Category)
	}).Once()

	payload := `{"category_list":[
		{"id":3,"title":" Taxes ","lang":3,"parent_id":1,"responses":[10,11],"config":{"order":2}},
		{"id":4,"title":"Pensions","lang":99,"config":{"order":1}},
		{"title":"no id"}
	]}`
	require.NoError(t, f.send(t, contracts.EventCategoryList, payload))

	require.Len(t, got, 2)
	assert.Equal(t, types.Category{ID: 4, Title: "Pensions", Language: types.LanguageRussian, Config: types.CategoryConfig{Order: 1}}, got[0])
	assert.Equal(t, types.Category{
		ID:        3,
		Title:     "Taxes",
		Language:  types.LanguageEnglish,
		ParentID:  1,
		Responses: []int64{10, 11},
		Config:    types.CategoryConfig{Order: 2},
	}, got[1])
}

func TestCard102Update(t *testing.T) {
	f := newFixture(t)
	f.location.On("OnCard102Update", types.Card102ForceOnSpot).Once()

	require.NoError(t, f.send(t, contracts.EventCard102Update, `{"status":3}`))
	assert.ErrorIs(t, f.send(t, contracts.EventCard102Update, `{"status":7}`), ErrUnsupportedFrame)
	assert.ErrorIs(t, f.send(t, contracts.EventCard102Update, `{}`), ErrMalformedFrame)
	assert.Equal(t, []string{"card102_update:unsupported", "card102_update:malformed"}, f.observer.dropped)
}

func TestLocationUpdate(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		f := newFixture(t)
		f.location.On("OnLocationUpdate", []types.LocationUpdate{
			{GPSCode: 12, Longitude: 76.95, Latitude: 43.25},
			{Longitude: 71.43, Latitude: 51.13},
		}).Once()

		payload := `[{"gps_code":12,"coords":[76.95,43.25]},{"coords":["71.43","51.13"]},{"coords":[1]}]`
		require.NoError(t, f.send(t, contracts.EventLocationUpdate, payload))
	})

	t.Run("single object", func(t *testing.T) {
		f := newFixture(t)
		f.location.On("OnLocationUpdate", []types.LocationUpdate{{GPSCode: 5, Longitude: 1, Latitude: 2}}).Once()

		require.NoError(t, f.send(t, contracts.EventLocationUpdate, `{"gps_code":"5","coords":[1,2]}`))
	})

	t.Run("no coordinates", func(t *testing.T) {
		f := newFixture(t)
		assert.ErrorIs(t, f.send(t, contracts.EventLocationUpdate, `[{"coords":[]}]`), ErrMalformedFrame)
	})
}

func TestTaskMessage(t *testing.T) {
	f := newFixture(t)
	f.task.On("OnTaskMessage", types.TaskMessage{
		Notification: types.TaskNotification{Title: "Task created", URL: "https://track/TR-2"},
		Message:      "We will call you back",
		Task:         types.Task{ID: 8, TrackID: "TR-2"},
	}).Once()

	payload := `{"notification":{"title":"Task created","url":"https://track/TR-2"},"message":"We will call you back","task":{"id":"8","track_id":"TR-2"}}`
	require.NoError(t, f.send(t, contracts.EventTaskMessage, payload))
}

func TestOperatorTyping(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.classifier.Handle(contracts.EventOperatorTyping, nil))
}

func TestLenientScalars(t *testing.T) {
	var s struct {
		A OptString `json:"a"`
		B OptString `json:"b"`
		C OptInt    `json:"c"`
		D OptInt    `json:"d"`
		E OptBool   `json:"e"`
		F OptBool   `json:"f"`
		G OptFloat  `json:"g"`
		H OptInt    `json:"h"`
		I OptString `json:"i"`
	}

	err := json.Unmarshal([]byte(`{"a":12,"b":true,"c":"42","d":3.0,"e":"true","f":0,"g":"1.5","h":"","i":null}`), &s)
	require.NoError(t, err)

	assert.Equal(t, OptString{Value: "12", Valid: true}, s.A)
	assert.Equal(t, OptString{Value: "true", Valid: true}, s.B)
	assert.Equal(t, OptInt{Value: 42, Valid: true}, s.C)
	assert.Equal(t, OptInt{Value: 3, Valid: true}, s.D)
	assert.True(t, s.E.True())
	assert.True(t, s.F.Valid)
	assert.False(t, s.F.True())
	assert.Equal(t, OptFloat{Value: 1.5, Valid: true}, s.G)
	assert.False(t, s.H.Valid)
	assert.False(t, s.I.Valid)
	assert.True(t, s.I.Blank())
	assert.Equal(t, int64(7), s.H.Or(7))
}

func TestLenientScalarsOfWrongShape(t *testing.T) {
	var s struct {
		A OptString `json:"a"`
		B OptInt    `json:"b"`
		C OptInt    `json:"c"`
		D OptInt    `json:"d"`
		E OptBool   `json:"e"`
		F OptFloat  `json:"f"`
		G OptInt    `json:"g"`
		H OptInt    `json:"h"`
	}

	err := json.Unmarshal([]byte(`{"a":{"x":1},"b":"12:30","c":[1],"d":1e30,"e":"maybe","f":{},"g":-1e19,"h":9223372036854775807}`), &s)
	require.NoError(t, err)

	assert.False(t, s.A.Valid)
	assert.False(t, s.B.Valid)
	assert.False(t, s.C.Valid)
	assert.False(t, s.D.Valid)
	assert.Equal(t, int64(0), s.D.Value)
	assert.False(t, s.E.Valid)
	assert.False(t, s.F.Valid)
	assert.False(t, s.G.Valid)
	assert.Equal(t, OptInt{Value: math.MaxInt64, Valid: true}, s.H)
}
