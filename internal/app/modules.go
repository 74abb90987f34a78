package app

import (
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/modules/arith"
	"github.com/vk/eventflowgo/modules/calendar"
	"github.com/vk/eventflowgo/modules/cast"
	"github.com/vk/eventflowgo/modules/compare"
	"github.com/vk/eventflowgo/modules/glue"
	"github.com/vk/eventflowgo/modules/join"
	"github.com/vk/eventflowgo/modules/lag"
	"github.com/vk/eventflowgo/modules/prefix"
	"github.com/vk/eventflowgo/modules/reindex"
	"github.com/vk/eventflowgo/modules/resample"
	"github.com/vk/eventflowgo/modules/scalar"
	"github.com/vk/eventflowgo/modules/unary"
	"github.com/vk/eventflowgo/modules/window"
)

// coreModules is the definitive list of operator modules compiled into
// the binary.
var coreModules = []registry.Module{
	&lag.Module{},
	&arith.Module{},
	&compare.Module{},
	&scalar.Module{},
	&unary.Module{},
	&window.Module{},
	&resample.Module{},
	&glue.Module{},
	&prefix.Module{},
	&cast.Module{},
	&calendar.Module{},
	&reindex.Module{},
	&join.Module{},
}
