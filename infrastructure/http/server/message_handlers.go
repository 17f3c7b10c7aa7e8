package server

import (
	"bubble-relay/domain"
	"net/http"
)

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	requester, err := s.requester(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body sendMessageRequest
	if err := s.decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	delivered, err := s.services.Mailbox.Send(r.Context(), requester, domain.SendMessageCommand{
		RecipientIDs: body.ClientUUIDs,
		Payload:      body.Message.Message,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, sendMessageResponse{Delivered: delivered})
}

func (s *Server) receiveMessages(w http.ResponseWriter, r *http.Request) {
	requester, err := s.requester(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entries, err := s.services.Mailbox.Receive(r.Context(), requester, r.PathValue("uuid"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, messagesResponse{Messages: toDeliveredMessages(entries)})
}

func (s *Server) acknowledgeMessages(w http.ResponseWriter, r *http.Request) {
	requester, err := s.requester(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body acknowledgeRequest
	if err := s.decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	removed, err := s.services.Mailbox.Acknowledge(r.Context(), requester, domain.AcknowledgeCommand{
		ClientID: r.PathValue("uuid"),
		Through:  body.Through,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, acknowledgeResponse{Removed: removed})
}
