// Package routing assigns every discovered audio file to an output category.
//
// Router.Route takes the immutable dataset descriptors, the final emotion
// map, and the discovery listing, and returns a Plan: one DatasetPlan per
// dataset with a Decision per file and a Summary of the counts. Routing is a
// pure function of its inputs; running it twice over the same listing yields
// an identical plan. Datasets are routed concurrently on a bounded worker
// pool, and the plan is always reported in descriptor order.
package routing
