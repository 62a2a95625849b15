package memory

import appoutbox "stayregister/internal/app/outbox"

func recordWithID(id string) appoutbox.EventRecord {
	return appoutbox.EventRecord{ID: id, Name: "stay.recorded", Payload: []byte(`{}`)}
}
