package incoming

import (
	"bytes"
	"encoding/json"
	"fmt"

	contracts "kenes-socket-go/pkg/contracts/socket"
	"kenes-socket-go/pkg/types"
)

func decode(raw json.RawMessage, v interface{}) error {
	if !present(raw) {
		return fmt.Errorf("%w: empty payload", ErrMalformedFrame)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return nil
}

type greetPayload struct {
	Name               OptString `json:"name"`
	FullName           OptString `json:"full_name"`
	Photo              OptString `json:"photo"`
	Text               OptString `json:"text"`
	AudioStreamEnabled OptBool   `json:"audio_stream_enabled"`
	VideoStreamEnabled OptBool   `json:"video_stream_enabled"`
}

func (c *Classifier) handleOperatorGreet(raw json.RawMessage) error {
	var payload greetPayload
	if err := decode(raw, &payload); err != nil {
		return err
	}

	greeting := types.Greeting{
		CallAgent: types.CallAgent{
			Name:               payload.Name.Trimmed(),
			FullName:           payload.FullName.Trimmed(),
			PhotoURL:           payload.Photo.Trimmed(),
			AudioStreamEnabled: payload.AudioStreamEnabled.True(),
			VideoStreamEnabled: payload.VideoStreamEnabled.True(),
		},
		Text: payload.Text.Trimmed(),
	}

	call := c.registry.Call()
	if call == nil {
		c.observer.Dropped(contracts.EventOperatorGreet, ReasonNoListener)
		return nil
	}
	call.OnCallAgentGreet(greeting)
	c.observer.Classified(contracts.EventOperatorGreet, "greet")
	return nil
}

func (c *Classifier) handleOperatorTyping(json.RawMessage) error {
	c.logger.Debug("Operator is typing")
	return nil
}

type queuePayload struct {
	Count OptInt `json:"count"`
}

func (c *Classifier) handleUserQueue(raw json.RawMessage) error {
	var payload queuePayload
	if err := decode(raw, &payload); err != nil {
		return err
	}
	if !payload.Count.Valid {
		return fmt.Errorf("%w: user_queue without count", ErrMalformedFrame)
	}

	call := c.registry.Call()
	if call == nil {
		c.observer.Dropped(contracts.EventUserQueue, ReasonNoListener)
		return nil
	}
	call.OnPendingUsersQueueCount("", int(payload.Count.Value))
	c.observer.Classified(contracts.EventUserQueue, "queue")
	return nil
}

type feedbackPayload struct {
	Text    OptString `json:"text"`
	ChatID  OptInt    `json:"chat_id"`
	Buttons []struct {
		Title   OptString `json:"title"`
		Payload OptString `json:"payload"`
	} `json:"buttons"`
}

func (c *Classifier) handleFeedback(raw json.RawMessage) error {
	var payload feedbackPayload
	if err := decode(raw, &payload); err != nil {
		return err
	}
	if payload.Buttons == nil {
		c.logger.Debug("Feedback without rating buttons ignored")
		return nil
	}

	buttons := make([]types.RateButton, 0, len(payload.Buttons))
	for _, button := range payload.Buttons {
		buttons = append(buttons, types.RateButton{
			Title:   button.Title.Trimmed(),
			Payload: button.Payload.Trimmed(),
		})
	}

	call := c.registry.Call()
	if call == nil {
		c.observer.Dropped(contracts.EventFeedback, ReasonNoListener)
		return nil
	}
	call.OnCallFeedback(payload.Text.Trimmed(), buttons)
	c.observer.Classified(contracts.EventFeedback, "feedback")
	return nil
}

type formInitPayload struct {
	Form   *FormEnvelope `json:"form"`
	Fields []struct {
		ID      OptInt    `json:"id"`
		FormID  OptInt    `json:"form_id"`
		Title   OptString `json:"title"`
		Prompt  OptString `json:"prompt"`
		Type    OptString `json:"type"`
		Default OptString `json:"default"`
		Level   OptInt    `json:"level"`
	} `json:"form_fields"`
}

func (c *Classifier) handleFormInit(raw json.RawMessage) error {
	var payload formInitPayload
	if err := decode(raw, &payload); err != nil {
		return err
	}

	form, ok := payload.Form.form()
	if !ok {
		return fmt.Errorf("%w: form_init without form id", ErrMalformedFrame)
	}

	for _, field := range payload.Fields {
		form.Fields = append(form.Fields, types.Field{
			ID:           field.ID.Value,
			FormID:       field.FormID.Or(form.ID),
			Title:        field.Title.Trimmed(),
			Prompt:       field.Prompt.Trimmed(),
			Type:         types.ParseFieldType(field.Type.Value),
			DefaultValue: field.Default.Value,
			Level:        int(field.Level.Or(types.NoLevel)),
		})
	}

	formListener := c.registry.Form()
	if formListener == nil {
		c.observer.Dropped(contracts.EventFormInit, ReasonNoListener)
		return nil
	}
	formListener.OnFormInit(form)
	c.observer.Classified(contracts.EventFormInit, "form_init")
	return nil
}

type taskPayload struct {
	ID      OptInt    `json:"id"`
	TrackID OptString `json:"track_id"`
}

type formFinalPayload struct {
	Task    *taskPayload `json:"task"`
	Message OptString    `json:"message"`
	Success OptBool      `json:"success"`
}

func (c *Classifier) handleFormFinal(raw json.RawMessage) error {
	var payload formFinalPayload
	if err := decode(raw, &payload); err != nil {
		return err
	}

	result := types.FormResult{
		Message: payload.Message.Trimmed(),
		Success: payload.Success.True(),
	}
	if payload.Task != nil {
		result.TaskID = payload.Task.ID.Value
		result.TrackID = payload.Task.TrackID.Trimmed()
	}

	formListener := c.registry.Form()
	if formListener == nil {
		c.observer.Dropped(contracts.EventFormFinal, ReasonNoListener)
		return nil
	}
	formListener.OnFormFinal(result)
	c.observer.Classified(contracts.EventFormFinal, "form_final")
	return nil
}

type categoryPayload struct {
	ID        OptInt    `json:"id"`
	Title     OptString `json:"title"`
	Lang      OptInt    `json:"lang"`
	ParentID  OptInt    `json:"parent_id"`
	Photo     OptString `json:"photo"`
	Responses []OptInt  `json:"responses"`
	Config    *struct {
		Order OptInt `json:"order"`
	} `json:"config"`
}

type categoryListPayload struct {
	Categories []categoryPayload `json:"category_list"`
}

func (c *Classifier) handleCategoryList(raw json.RawMessage) error {
	var payload categoryListPayload
	if err := decode(raw, &payload); err != nil {
		return err
	}

	categories := make([]types.Category, 0, len(payload.Categories))
	for _, item := range payload.Categories {
		if !item.ID.Valid {
			continue
		}

		lang, ok := types.LanguageByID(item.Lang.Value)
		if !ok {
			lang = types.DefaultLanguage
		}

		category := types.Category{
			ID:       item.ID.Value,
			Title:    item.Title.Trimmed(),
			Language: lang,
			ParentID: item.ParentID.Or(types.NoParentID),
			Photo:    item.Photo.Trimmed(),
		}
		for _, response := range item.Responses {
			if response.Valid {
				category.Responses = append(category.Responses, response.Value)
			}
		}
		if item.Config != nil {
			category.Config.Order = int(item.Config.Order.Value)
		}

		categories = append(categories, category)
	}
	types.SortCategories(categories)

	chatBot := c.registry.ChatBot()
	if chatBot == nil {
		c.observer.Dropped(contracts.EventCategoryList, ReasonNoListener)
		return nil
	}
	chatBot.OnCategories(categories)
	c.observer.Classified(contracts.EventCategoryList, "categories")
	return nil
}

type card102Payload struct {
	Status OptInt `json:"status"`
}

func (c *Classifier) handleCard102Update(raw json.RawMessage) error {
	var payload card102Payload
	if err := decode(raw, &payload); err != nil {
		return err
	}
	if !payload.Status.Valid {
		return fmt.Errorf("%w: card102_update without status", ErrMalformedFrame)
	}

	status := types.Card102Status(payload.Status.Value)
	if !status.Valid() {
		return fmt.Errorf("%w: card102 status %d", ErrUnsupportedFrame, payload.Status.Value)
	}

	location := c.registry.Location()
	if location == nil {
		c.observer.Dropped(contracts.EventCard102Update, ReasonNoListener)
		return nil
	}
	location.OnCard102Update(status)
	c.observer.Classified(contracts.EventCard102Update, status.String())
	return nil
}

type locationUpdatePayload struct {
	GPSCode OptInt     `json:"gps_code"`
	Coords  []OptFloat `json:"coords"`
}

func (c *Classifier) handleLocationUpdate(raw json.RawMessage) error {
	var items []locationUpdatePayload
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		if err := decode(raw, &items); err != nil {
			return err
		}
	} else {
		var item locationUpdatePayload
		if err := decode(raw, &item); err != nil {
			return err
		}
		items = append(items, item)
	}

	updates := make([]types.LocationUpdate, 0, len(items))
	for _, item := range items {
		if len(item.Coords) != 2 || !item.Coords[0].Valid || !item.Coords[1].Valid {
			c.logger.Debug("Location update without coordinates skipped", "gps_code", item.GPSCode.Value)
			continue
		}
		updates = append(updates, types.LocationUpdate{
			GPSCode:   item.GPSCode.Value,
			Longitude: item.Coords[0].Value,
			Latitude:  item.Coords[1].Value,
		})
	}
	if len(updates) == 0 {
		return fmt.Errorf("%w: location_update without coordinates", ErrMalformedFrame)
	}

	location := c.registry.Location()
	if location == nil {
		c.observer.Dropped(contracts.EventLocationUpdate, ReasonNoListener)
		return nil
	}
	location.OnLocationUpdate(updates)
	c.observer.Classified(contracts.EventLocationUpdate, "location")
	return nil
}

type taskMessagePayload struct {
	Notification *struct {
		Title OptString `json:"title"`
		URL   OptString `json:"url"`
	} `json:"notification"`
	Message OptString    `json:"message"`
	Task    *taskPayload `json:"task"`
}

func (c *Classifier) handleTaskMessage(raw json.RawMessage) error {
	var payload taskMessagePayload
	if err := decode(raw, &payload); err != nil {
		return err
	}

	message := types.TaskMessage{Message: payload.Message.Trimmed()}
	if payload.Notification != nil {
		message.Notification = types.TaskNotification{
			Title: payload.Notification.Title.Trimmed(),
			URL:   payload.Notification.URL.Trimmed(),
		}
	}
	if payload.Task != nil {
		message.Task = types.Task{
			ID:      payload.Task.ID.Value,
			TrackID: payload.Task.TrackID.Trimmed(),
		}
	}

	task := c.registry.Task()
	if task == nil {
		c.observer.Dropped(contracts.EventTaskMessage, ReasonNoListener)
		return nil
	}
	task.OnTaskMessage(message)
	c.observer.Classified(contracts.EventTaskMessage, "task")
	return nil
}
