package protocol

import (
	"fmt"

	"binxfer/index"

	"go.uber.org/zap"
)

func (h *CommandHandler) withValidParam(param, missing string, handler func()) {
	if param == "" {
		h.session.SendResponse(missing)
		return
	}
	handler()
}

// withExistingFile resolves name against the index. An entry whose file
// changed on disk since the snapshot triggers one rebuild before giving up.
func (h *CommandHandler) withExistingFile(name string, handler func(index.FileDescriptor)) {
	notFound := fmt.Sprintf(MsgFileNotFound, name)
	if err := ValidateFilename(name); err != nil {
		h.session.SendResponse(notFound)
		return
	}

	ix := h.session.Index()
	fd, ok, err := ix.Lookup(name)
	if err != nil {
		h.session.Logger().Warn("index lookup failed", zap.String("file", name), zap.Error(err))
		h.session.SendResponse(notFound)
		return
	}

	if !ok || !ix.Fresh(fd) {
		snap, err := ix.Rebuild()
		if err != nil {
			h.session.Logger().Warn("index rebuild failed", zap.Error(err))
			h.session.SendResponse(notFound)
			return
		}
		if fd, ok = snap.Lookup(name); !ok {
			h.session.SendResponse(notFound)
			return
		}
	}

	handler(fd)
}
