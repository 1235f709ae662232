package graph

import (
	"context"
)

// noop returns a node that contributes nothing.
func noop() Node {
	return NodeFunc(func(context.Context, State) (Update, error) { return nil, nil })
}

// set returns a node that writes a fixed update.
func set(u Update) Node {
	return NodeFunc(func(context.Context, State) (Update, error) { return u, nil })
}

func helloSchema() *Schema {
	return MustSchema(
		LastValue[string]("name").WithDefault(func() any { return "Ada Lovelace" }),
		Coalesce("isHuman", false),
	)
}

// helloBuilder declares the hello-world graph: sayHello routes to humanNode or
// robotNode, both of which lead to sayBye.
func helloBuilder() *Builder {
	routeHumanOrRobot := Branch(func(s State) string {
		if isHuman, _ := Lookup[bool](s, "isHuman"); isHuman {
			return "humanNode"
		}
		return "robotNode"
	})
	return NewBuilder(helloSchema()).
		AddNode("sayHello", set(Update{"name": "Bill Nye"})).
		AddNode("sayBye", noop()).
		AddNode("humanNode", noop()).
		AddNode("robotNode", set(Update{"isHuman": true})).
		AddEdge(START, "sayHello").
		AddConditionalEdges("sayHello", routeHumanOrRobot, "humanNode", "robotNode").
		AddEdge("humanNode", "sayBye").
		AddEdge("robotNode", "sayBye").
		AddEdge("sayBye", END)
}
